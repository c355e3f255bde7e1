package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/blobstore"
)

func TestOpenStore_Local(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	for _, loc := range []string{dir, "file://" + dir} {
		s, err := openStore(ctx, loc)
		require.NoError(t, err, loc)
		require.IsType(t, &blobstore.LocalStore{}, s)

		require.NoError(t, s.Put(ctx, "a.snap", []byte("x")))
		data, err := blobstore.ReadAll(ctx, s, "a.snap")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	}
	assert.FileExists(t, filepath.Join(dir, "a.snap"))
}

func TestOpenStore_Memory(t *testing.T) {
	s, err := openStore(t.Context(), "mem://")
	require.NoError(t, err)
	assert.IsType(t, &blobstore.MemoryStore{}, s)
}

func TestOpenStore_Errors(t *testing.T) {
	for _, loc := range []string{
		"ftp://host/dir",
		"s3:///prefix",
		"minio://localhost:9000",
		"minio://localhost:9000/",
	} {
		_, err := openStore(t.Context(), loc)
		assert.Error(t, err, loc)
	}
}

func TestOpenStore_Minio(t *testing.T) {
	t.Setenv(envMinioAccessKey, "key")
	t.Setenv(envMinioSecretKey, "secret")
	t.Setenv(envMinioInsecure, "1")

	// Constructing the client does not contact the endpoint.
	s, err := openStore(t.Context(), "minio://localhost:9000/results/runs/")
	require.NoError(t, err)
	assert.NotNil(t, s)
}
