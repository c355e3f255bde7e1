// Package codec encodes the self-describing headers of persisted records.
//
// Records store the codec name, so changing the default never breaks
// decoding of existing data.
package codec

import "fmt"

// Codec encodes and decodes values. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for new records.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustByName is ByName for names known at compile time.
func MustByName(name string) Codec {
	c, ok := ByName(name)
	if !ok {
		panic(fmt.Sprintf("codec: unknown codec %q", name))
	}
	return c
}
