package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hupe1980/diaggo/blobstore"
	"github.com/hupe1980/diaggo/blobstore/minio"
	"github.com/hupe1980/diaggo/blobstore/s3"
)

// Environment variables read for minio:// stores.
const (
	envMinioAccessKey = "DIAGGO_MINIO_ACCESS_KEY"
	envMinioSecretKey = "DIAGGO_MINIO_SECRET_KEY"
	envMinioInsecure  = "DIAGGO_MINIO_INSECURE"
)

// openStore resolves a store location:
//
//	/path/to/dir or file:///path/to/dir   local directory
//	mem://                                in-memory (testing)
//	s3://bucket/prefix?region=eu-west-1   AWS S3, default credential chain
//	minio://host:port/bucket/prefix       S3-compatible endpoint
func openStore(ctx context.Context, loc string) (blobstore.Store, error) {
	if !strings.Contains(loc, "://") {
		return blobstore.NewLocalStore(loc), nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", loc, err)
	}
	switch u.Scheme {
	case "file":
		return blobstore.NewLocalStore(u.Host + u.Path), nil
	case "mem":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("store %q: missing bucket", loc)
		}
		opts := []s3.Option{s3.WithPrefix(strings.Trim(u.Path, "/"))}
		if r := u.Query().Get("region"); r != "" {
			opts = append(opts, s3.WithRegion(r))
		}
		s, err := s3.New(ctx, u.Host, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("store %q: want minio://endpoint/bucket[/prefix]", loc)
		}
		s, err := minio.New(minio.Config{
			Endpoint:  u.Host,
			AccessKey: os.Getenv(envMinioAccessKey),
			SecretKey: os.Getenv(envMinioSecretKey),
			Secure:    os.Getenv(envMinioInsecure) == "",
			Bucket:    bucket,
			Prefix:    prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store %q: unsupported scheme %q", loc, u.Scheme)
	}
}
