package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(t.Context()), out.String())
	return out.String()
}

// groundState returns the eigenvalue printed with index 0.
func groundState(t *testing.T, out string) float64 {
	t.Helper()
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "0\t"); ok {
			e, err := strconv.ParseFloat(v, 64)
			require.NoError(t, err)
			return e
		}
	}
	t.Fatalf("no eigenvalue in output:\n%s", out)
	return 0
}

func TestInfo(t *testing.T) {
	model := writeModel(t, ringModel)

	out := execute(t, "info", "--model", model)

	assert.Contains(t, out, "size:      6")
	assert.Contains(t, out, "operators: 4")
	assert.Contains(t, out, "terms:     8")
	assert.Contains(t, out, "hermitian: true")
	assert.Contains(t, out, "real:      true")
}

func TestEigvalsAndShow(t *testing.T) {
	model := writeModel(t, ringModel)
	store := t.TempDir()
	metrics := filepath.Join(t.TempDir(), "metrics.prom")

	out := execute(t, "eigvals", "--model", model, "--neigvals", "2",
		"--store", store, "--name", "ring.snap", "--vector", "--compression", "lz4",
		"--metrics-out", metrics, "--log-level", "debug", "--log-format", "json")
	assert.InDelta(t, -2.0, groundState(t, out), 1e-9)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "diaggo_lanczos_iterations")
	assert.Contains(t, string(data), `diaggo_operations_total{operation="lanczos",result="ok"} 1`)

	out = execute(t, "show", "--store", store, "--name", "ring.snap")
	assert.Contains(t, out, "nsites:    4")
	assert.Contains(t, out, "vector:    float64[6]")
	assert.InDelta(t, -2.0, groundState(t, out), 1e-9)
}

func TestEigvals_Symmetric(t *testing.T) {
	model := writeModel(t, ringModel+"symmetry:\n  group: cyclic\n  momentum: 0\n")

	out := execute(t, "eigvals", "--model", model, "--workers", "4")

	assert.InDelta(t, -2.0, groundState(t, out), 1e-9)
}

func TestEigvals_Distributed(t *testing.T) {
	model := writeModel(t, ringModel)
	store := t.TempDir()

	out := execute(t, "eigvals", "--model", model, "--ranks", "3", "--store", store)
	assert.InDelta(t, -2.0, groundState(t, out), 1e-9)

	out = execute(t, "show", "--store", store, "--name", "ring.snap")
	assert.Contains(t, out, "model:     Spinhalf")
	assert.InDelta(t, -2.0, groundState(t, out), 1e-9)
}

func TestEigvals_Errors(t *testing.T) {
	model := writeModel(t, ringModel+"symmetry:\n  group: cyclic\n")

	for _, args := range [][]string{
		{"eigvals"},
		{"eigvals", "--model", model, "--ranks", "2"},
		{"eigvals", "--model", model, "--compression", "brotli"},
		{"eigvals", "--model", model, "--log-level", "loud"},
		{"eigvals", "--model", model, "--log-format", "xml"},
		{"show", "--store", t.TempDir(), "--name", "missing"},
	} {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		assert.Error(t, cmd.ExecuteContext(t.Context()), args)
	}
}

func TestSnapshotName(t *testing.T) {
	assert.Equal(t, "ring.snap", snapshotName("/models/ring.yaml"))
	assert.Equal(t, "ring.snap", snapshotName("ring"))
	assert.Equal(t, ".hidden.snap", snapshotName("dir/.hidden"))
}
