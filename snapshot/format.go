package snapshot

import (
	"errors"
	"fmt"
)

const (
	// Magic identifies snapshot blobs (ASCII "DGS1").
	Magic uint32 = 0x44475331
	// Version is the current format version.
	Version uint32 = 1
)

// Compression is the payload compression.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = iota
	// CompressionLZ4 uses LZ4 blocks; fast, moderate ratio.
	CompressionLZ4
	// CompressionZstd uses zstd; better ratio.
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses the names returned by Compression.String.
func ParseCompression(s string) (Compression, error) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("snapshot: unknown compression %q", s)
}

var (
	// ErrInvalidMagic means the blob is not a snapshot.
	ErrInvalidMagic = errors.New("snapshot: invalid magic number")
	// ErrInvalidVersion means the snapshot was written by an unknown version.
	ErrInvalidVersion = errors.New("snapshot: unsupported version")
	// ErrUnknownCodec means the header codec is not built in.
	ErrUnknownCodec = errors.New("snapshot: unknown codec")
	// ErrCorrupt means a length or checksum does not match.
	ErrCorrupt = errors.New("snapshot: corrupt data")
)

// ChecksumMismatchError is returned when the trailing checksum does not
// match the content. It unwraps to ErrCorrupt.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

// vector kinds stored in the header
const (
	vectorNone    = ""
	vectorReal    = "float64"
	vectorComplex = "complex128"
)
