package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/diaggo/blobstore"
)

const (
	// SnapshotContentType is set on objects whose name ends in SnapshotExt.
	SnapshotContentType = "application/vnd.diaggo.snapshot"
	// SnapshotExt marks snapshot blobs.
	SnapshotExt = ".snap"

	// checksumKey is the user metadata key holding the CRC32C of blobs
	// written by Put, as 8 hex digits.
	checksumKey = "Diaggo-Crc32c"

	defaultPartSize = 8 << 20
)

// ErrChecksumMismatch is returned when a full read of a blob does not match
// the CRC32C recorded at upload.
var ErrChecksumMismatch = errors.New("minio: checksum mismatch")

// Config describes a bucket on an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	// Prefix is the key prefix of all blobs, without a trailing slash.
	Prefix string
	// PartSize is the multipart part size of Create. Default 8 MiB.
	PartSize uint64
}

// Store keeps diaggo blobs under <prefix>/<name> in a MinIO bucket.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	partSize uint64
}

// NewStore creates a store on an existing client.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		partSize: defaultPartSize,
	}
}

// New connects to cfg.Endpoint with static credentials.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio: empty bucket name")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect %s: %w", cfg.Endpoint, err)
	}
	s := NewStore(client, cfg.Bucket, cfg.Prefix)
	if cfg.PartSize > 0 {
		s.partSize = cfg.PartSize
	}
	return s, nil
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// name is the inverse of key.
func (s *Store) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

// ContentType returns the content type stored with blob name.
func ContentType(name string) string {
	if path.Ext(name) == SnapshotExt {
		return SnapshotContentType
	}
	return "application/octet-stream"
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func parseChecksum(meta map[string]string) (uint32, bool) {
	for k, v := range meta {
		if !strings.EqualFold(k, checksumKey) {
			continue
		}
		sum, err := strconv.ParseUint(v, 16, 32)
		if err != nil {
			return 0, false
		}
		return uint32(sum), true
	}
	return 0, false
}

func formatChecksum(sum uint32) string {
	return fmt.Sprintf("%08x", sum)
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	b := &blob{client: s.client, bucket: s.bucket, key: key, size: info.Size}
	b.checksum, b.hasChecksum = parseChecksum(info.UserMetadata)
	return b, nil
}

// Put uploads data in one request and records its CRC32C.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  ContentType(name),
			UserMetadata: map[string]string{checksumKey: formatChecksum(blobstore.Checksum(data))},
		})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", name, err)
	}
	return nil
}

// Create streams a blob of unknown size as a multipart upload. It appears
// on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &writableBlob{pw: pw, done: make(chan error, 1)}
	opts := minio.PutObjectOptions{ContentType: ContentType(name), PartSize: s.partSize}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, opts)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("minio: delete %s: %w", name, err)
	}
	return nil
}

// List returns the sorted names of all blobs starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.name(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type blob struct {
	client      *minio.Client
	bucket      string
	key         string
	size        int64
	checksum    uint32
	hasChecksum bool
}

func (b *blob) Size() int64 { return b.size }

func (b *blob) Close() error { return nil }

func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	r, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	want := min(int64(len(p)), b.size-off)
	n, err := io.ReadFull(r, p[:want])
	if err == nil && want < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// ReadRange returns a reader for the range. A read of the whole blob is
// verified against the recorded CRC32C when there is one.
func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size || length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, min(off+length, b.size)-1); err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", b.key, err)
	}
	if off == 0 && length >= b.size && b.hasChecksum {
		return newVerifyingReader(obj, b.checksum), nil
	}
	return obj, nil
}

// verifyingReader checks the CRC32C of everything read once the
// underlying reader reports io.EOF.
type verifyingReader struct {
	rc   io.ReadCloser
	h    hash.Hash32
	want uint32
}

func newVerifyingReader(rc io.ReadCloser, want uint32) *verifyingReader {
	return &verifyingReader{rc: rc, h: blobstore.NewChecksum(), want: want}
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.rc.Read(p)
	v.h.Write(p[:n])
	if errors.Is(err, io.EOF) {
		if got := v.h.Sum32(); got != v.want {
			return n, fmt.Errorf("%w: recorded %08x, read %08x", ErrChecksumMismatch, v.want, got)
		}
	}
	return n, err
}

func (v *verifyingReader) Close() error { return v.rc.Close() }

type writableBlob struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (w *writableBlob) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return w.pw.Write(p)
}

func (w *writableBlob) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func (w *writableBlob) Sync() error { return nil }
