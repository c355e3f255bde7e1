// Command diaggo runs exact diagonalization on models described in YAML.
//
//	diaggo info --model chain.yaml
//	diaggo eigvals --model chain.yaml --neigvals 3 --store ./out --name chain
//	diaggo show --store ./out --name chain
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "diaggo:", err)
		os.Exit(1)
	}
}
