package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	// 1. Put a blob
	name := "/owner/post.webp"
	data := []byte("RIFF....WEBPVP8 this is a test image")
	require.NoError(t, store.Put(ctx, name, data))

	// Verify file exists on disk
	_, err := os.Stat(filepath.Join(tmpDir, "owner", "post.webp"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "WEBP", string(buf))

	_, err = blob.ReadAt(ctx, buf, int64(len(data)))
	require.Equal(t, io.EOF, err)

	m, ok := blob.(Mappable)
	require.True(t, ok)
	mapped, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, mapped)

	// 3. List
	require.NoError(t, store.Put(ctx, "/owner/profile_picture.webp", []byte("avatar")))
	require.NoError(t, store.Put(ctx, "drawing/data.webp", []byte("local")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"/drawing/data.webp", "/owner/post.webp", "/owner/profile_picture.webp"}, names)

	names, err = store.List(ctx, "/owner/")
	require.NoError(t, err)
	require.Len(t, names, 2)

	names, err = store.List(ctx, "drawing")
	require.NoError(t, err)
	require.Equal(t, []string{"/drawing/data.webp"}, names)

	// 4. Overwrite
	require.NoError(t, store.Put(ctx, name, []byte("v2")))
	got, err := ReadAll(ctx, store, name)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	// 5. Delete
	require.NoError(t, store.Delete(ctx, name))
	require.NoError(t, store.Delete(ctx, name), "deleting a missing blob is not an error")

	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadAllOutlivesBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "a.webp", []byte("pixels")))

	data, err := ReadAll(ctx, store, "a.webp")
	require.NoError(t, err)
	// The mapping is closed by now; data must be an owned copy.
	assert.Equal(t, "pixels", string(data))
}

func TestLocalBlobStore_InvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "/", "../escape.webp", "a/../../b"} {
		_, err := store.Open(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, store.Put(ctx, name, nil), ErrInvalidName, name)
	}
}

func TestLocalBlobStore_MissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_CancelledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx, "a.webp")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Put(ctx, "a.webp", nil), context.Canceled)
}
