// Package snapshot persists the results of a diagonalization run: the
// basis descriptor, the Lanczos projection, eigenvalues and optionally a
// state vector.
//
// Layout (little endian):
//
//	magic uint32 | version uint32
//	codec name length uint8 | codec name
//	header length uint32 | header (codec encoded)
//	compression uint8 | raw payload length uint64 | payload length uint64 | payload
//	crc32c uint32 of everything before
//
// The payload is the state vector as raw float64 values, complex vectors as
// (real, imag) pairs.
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	stdhash "hash"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/blobstore"
	"github.com/hupe1980/diaggo/codec"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/resource"
)

// Record is the content of a snapshot. At most one of Vector and
// ComplexVector is set.
type Record struct {
	Basis         basis.Descriptor
	Tmatrix       lanczos.Tmatrix
	Eigenvalues   []float64
	Criterion     string
	Iterations    int
	Vector        []float64
	ComplexVector []complex128
}

const (
	// maxVectorBytes bounds the decompressed state vector.
	maxVectorBytes = 8 << 33
	// maxBlockBytes bounds any length field read from a stream.
	maxBlockBytes = 1 << 36
	readChunk     = 1 << 20
)

type header struct {
	Basis       basis.Descriptor `json:"basis"`
	Tmatrix     lanczos.Tmatrix  `json:"tmatrix"`
	Eigenvalues []float64        `json:"eigenvalues,omitempty"`
	Criterion   string           `json:"criterion,omitempty"`
	Iterations  int              `json:"iterations"`
	VectorKind  string           `json:"vector_kind,omitempty"`
	VectorLen   int              `json:"vector_len,omitempty"`
}

// Option configures Encode and Save.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression Compression
	resources   *resource.Controller
}

// WithCodec sets the header codec. Default codec.Default.
func WithCodec(c codec.Codec) Option { return func(o *options) { o.codec = c } }

// WithCompression sets the payload compression. Default CompressionZstd.
func WithCompression(c Compression) Option { return func(o *options) { o.compression = c } }

// WithResources throttles blob reads and writes with the IO limit of rc.
func WithResources(rc *resource.Controller) Option { return func(o *options) { o.resources = rc } }

func applyOptions(opts []Option) options {
	o := options{codec: codec.Default, compression: CompressionZstd}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Save writes rec to store under name.
func Save(ctx context.Context, store blobstore.Store, name string, rec *Record, opts ...Option) error {
	o := applyOptions(opts)
	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", name, err)
	}
	var dst io.Writer = w
	if o.resources != nil {
		dst = resource.NewRateLimitedWriter(ctx, w, o.resources)
	}
	if err := encode(dst, rec, o); err != nil {
		_ = w.Close()
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", name, err)
	}
	return nil
}

// Load reads the snapshot name from store.
func Load(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Record, error) {
	o := applyOptions(opts)
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", name, err)
	}
	defer func() { _ = b.Close() }()
	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()
	var src io.Reader = r
	if o.resources != nil {
		src = resource.NewRateLimitedReader(ctx, r, o.resources)
	}
	rec, err := decode(src, b.Size())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", name, err)
	}
	return rec, nil
}

// Encode writes rec to w.
func Encode(w io.Writer, rec *Record, opts ...Option) error {
	return encode(w, rec, applyOptions(opts))
}

func encode(w io.Writer, rec *Record, o options) error {
	if rec.Vector != nil && rec.ComplexVector != nil {
		return fmt.Errorf("snapshot: record holds a real and a complex vector")
	}
	h := header{
		Basis:       rec.Basis,
		Tmatrix:     rec.Tmatrix,
		Eigenvalues: rec.Eigenvalues,
		Criterion:   rec.Criterion,
		Iterations:  rec.Iterations,
	}
	var raw []byte
	switch {
	case rec.Vector != nil:
		h.VectorKind, h.VectorLen = vectorReal, len(rec.Vector)
		raw = floatsToBytes(rec.Vector)
	case rec.ComplexVector != nil:
		h.VectorKind, h.VectorLen = vectorComplex, len(rec.ComplexVector)
		flat := make([]float64, 0, 2*len(rec.ComplexVector))
		for _, c := range rec.ComplexVector {
			flat = append(flat, real(c), imag(c))
		}
		raw = floatsToBytes(flat)
	}
	hdr, err := o.codec.Marshal(h)
	if err != nil {
		return fmt.Errorf("snapshot: encode header: %w", err)
	}
	payload, err := compress(raw, o.compression)
	if err != nil {
		return err
	}

	crc := blobstore.NewChecksum()
	bw := bufio.NewWriter(w)
	out := io.MultiWriter(bw, crc)
	name := o.codec.Name()
	le := binary.LittleEndian
	var buf []byte
	buf = le.AppendUint32(buf, Magic)
	buf = le.AppendUint32(buf, Version)
	buf = append(buf, uint8(len(name)))
	buf = append(buf, name...)
	buf = le.AppendUint32(buf, uint32(len(hdr)))
	buf = append(buf, hdr...)
	buf = append(buf, uint8(o.compression))
	buf = le.AppendUint64(buf, uint64(len(raw)))
	buf = le.AppendUint64(buf, uint64(len(payload)))
	if _, err := out.Write(buf); err != nil {
		return err
	}
	if _, err := out.Write(payload); err != nil {
		return err
	}
	if _, err := bw.Write(le.AppendUint32(nil, crc.Sum32())); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a record from r.
func Decode(r io.Reader) (*Record, error) {
	return decode(r, -1)
}

// decode reads a record from r. Lengths in the stream larger than size, the
// total blob size if known (else negative), are rejected before reading.
func decode(r io.Reader, size int64) (*Record, error) {
	crc := blobstore.NewChecksum()
	cr := &checksumReader{r: bufio.NewReader(r), h: crc}
	le := binary.LittleEndian

	var fixed [9]byte
	if _, err := io.ReadFull(cr, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %w", ErrCorrupt, err)
	}
	if m := le.Uint32(fixed[0:]); m != Magic {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, m)
	}
	if v := le.Uint32(fixed[4:]); v != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, v)
	}
	name := make([]byte, fixed[8])
	if _, err := io.ReadFull(cr, name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	var hdrLen [4]byte
	if _, err := io.ReadFull(cr, hdrLen[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	hdr, err := readN(cr, uint64(le.Uint32(hdrLen[:])), size)
	if err != nil {
		return nil, err
	}
	var h header
	if err := c.Unmarshal(hdr, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}

	var meta [17]byte
	if _, err := io.ReadFull(cr, meta[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	comp := Compression(meta[0])
	rawLen, payLen := le.Uint64(meta[1:]), le.Uint64(meta[9:])
	if rawLen > maxVectorBytes {
		return nil, fmt.Errorf("%w: vector of %d bytes", ErrCorrupt, rawLen)
	}
	payload, err := readN(cr, payLen, size)
	if err != nil {
		return nil, err
	}

	want := crc.Sum32()
	var tail [4]byte
	if _, err := io.ReadFull(cr.r, tail[:]); err != nil {
		return nil, fmt.Errorf("%w: checksum: %w", ErrCorrupt, err)
	}
	if got := le.Uint32(tail[:]); got != want {
		return nil, &ChecksumMismatchError{Expected: got, Actual: want}
	}

	raw, err := decompress(payload, comp, int(rawLen))
	if err != nil {
		return nil, err
	}
	rec := &Record{
		Basis:       h.Basis,
		Tmatrix:     h.Tmatrix,
		Eigenvalues: h.Eigenvalues,
		Criterion:   h.Criterion,
		Iterations:  h.Iterations,
	}
	flat := bytesToFloats(raw)
	switch h.VectorKind {
	case vectorNone:
	case vectorReal:
		if len(flat) != h.VectorLen {
			return nil, fmt.Errorf("%w: vector of %d values, header says %d", ErrCorrupt, len(flat), h.VectorLen)
		}
		rec.Vector = flat
	case vectorComplex:
		if len(flat) != 2*h.VectorLen {
			return nil, fmt.Errorf("%w: vector of %d values, header says %d complex", ErrCorrupt, len(flat), h.VectorLen)
		}
		rec.ComplexVector = make([]complex128, h.VectorLen)
		for i := range rec.ComplexVector {
			rec.ComplexVector[i] = complex(flat[2*i], flat[2*i+1])
		}
	default:
		return nil, fmt.Errorf("%w: vector kind %q", ErrCorrupt, h.VectorKind)
	}
	return rec, nil
}

// readN reads exactly n bytes. The buffer grows with the data actually
// read, so a corrupt length cannot force a large allocation up front.
func readN(r io.Reader, n uint64, limit int64) ([]byte, error) {
	if n > maxBlockBytes || (limit >= 0 && n > uint64(limit)) {
		return nil, fmt.Errorf("%w: block of %d bytes", ErrCorrupt, n)
	}
	var buf bytes.Buffer
	buf.Grow(int(min(n, readChunk)))
	if m, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, fmt.Errorf("%w: read %d of %d bytes: %w", ErrCorrupt, m, n, err)
	}
	return buf.Bytes(), nil
}

type checksumReader struct {
	r io.Reader
	h stdhash.Hash32
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.h.Write(p[:n])
	return n, err
}

func compress(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		if len(raw) == 0 {
			return nil, nil
		}
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4: %w", err)
		}
		if n == 0 {
			// incompressible; an empty block marks stored data
			return append([]byte{0}, raw...), nil
		}
		return append([]byte{1}, dst[:n]...), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		defer func() { _ = enc.Close() }()
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %s", c)
	}
}

func decompress(payload []byte, c Compression, rawLen int) ([]byte, error) {
	var raw []byte
	switch c {
	case CompressionNone:
		raw = payload
	case CompressionLZ4:
		switch {
		case len(payload) == 0:
		case payload[0] == 0:
			raw = payload[1:]
		case rawLen > 255*len(payload)+16:
			return nil, fmt.Errorf("%w: lz4 block of %d bytes cannot hold %d", ErrCorrupt, len(payload), rawLen)
		default:
			raw = make([]byte, rawLen)
			n, err := lz4.UncompressBlock(payload[1:], raw)
			if err != nil {
				return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
			}
			raw = raw[:n]
		}
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		defer dec.Close()
		if raw, err = dec.DecodeAll(payload, make([]byte, 0, min(rawLen, readChunk))); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrCorrupt, uint8(c))
	}
	if len(raw) != rawLen {
		return nil, fmt.Errorf("%w: payload of %d bytes, header says %d", ErrCorrupt, len(raw), rawLen)
	}
	return raw, nil
}

func floatsToBytes(v []float64) []byte {
	var buf bytes.Buffer
	buf.Grow(8 * len(v))
	for _, x := range v {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func bytesToFloats(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return v
}
