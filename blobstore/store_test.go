package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			data := []byte("ground state energy -4.51521")

			w, err := store.Create(ctx, "run-1/tmatrix.snap")
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			b, err := store.Open(ctx, "run-1/tmatrix.snap")
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), b.Size())

			buf := make([]byte, 5)
			n, err := b.ReadAt(ctx, buf, 7)
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, "state", string(buf))

			r, err := b.ReadRange(ctx, 20, 100)
			require.NoError(t, err)
			tail, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "-4.51521", string(tail))
			require.NoError(t, r.Close())
			require.NoError(t, b.Close())

			require.NoError(t, store.Put(ctx, "run-2/tmatrix.snap", []byte("x")))
			require.NoError(t, store.Put(ctx, "other", []byte("y")))

			names, err := store.List(ctx, "run-")
			require.NoError(t, err)
			assert.Equal(t, []string{"run-1/tmatrix.snap", "run-2/tmatrix.snap"}, names)

			all, err := ReadAll(ctx, store, "run-1/tmatrix.snap")
			require.NoError(t, err)
			assert.Equal(t, data, all)

			require.NoError(t, store.Delete(ctx, "run-1/tmatrix.snap"))
			require.NoError(t, store.Delete(ctx, "run-1/tmatrix.snap"))
			_, err = store.Open(ctx, "run-1/tmatrix.snap")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, store.Put(ctx, "a", []byte("first")))
			require.NoError(t, store.Put(ctx, "a", []byte("second")))
			got, err := ReadAll(ctx, store, "a")
			require.NoError(t, err)
			assert.Equal(t, "second", string(got))
		})
	}
}

func TestLocalStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, store.Put(t.Context(), "snap", []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snap", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, "snap"))
	assert.NoError(t, err)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
