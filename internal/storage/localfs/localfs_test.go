package localfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stcorp/muninn/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalFS {
	t.Helper()
	root := t.TempDir()
	store := New(root, false)
	require.Nil(t, store.Prepare(context.Background()))
	return store
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPutAndRetrieveSingleFile(t *testing.T) {
	store := newTestStore(t)
	src := writeTempFile(t, "hello world")

	n, err := store.Put(context.Background(), []string{src}, "2024/01", "source.txt", false)
	require.Nil(t, err)
	assert.Equal(t, int64(len("hello world")), n)

	exists, err := store.Exists(context.Background(), "2024/01", "source.txt")
	require.Nil(t, err)
	assert.True(t, exists)

	targetDir := t.TempDir()
	paths, err := store.Retrieve(context.Background(), "2024/01", "source.txt", targetDir, false)
	require.Nil(t, err)
	require.Len(t, paths, 1)
	content, rerr := os.ReadFile(paths[0])
	require.NoError(t, rerr)
	assert.Equal(t, "hello world", string(content))
}

func TestPutMultiPartDirectory(t *testing.T) {
	store := newTestStore(t)
	a := writeTempFile(t, "part-a")
	b := filepath.Join(t.TempDir(), "part-b.txt")
	require.NoError(t, os.WriteFile(b, []byte("part-b"), 0o644))

	n, err := store.Put(context.Background(), []string{a, b}, "2024/01", "bundle", false)
	require.Nil(t, err)
	assert.Equal(t, int64(len("part-a")+len("part-b")), n)

	size, err := store.Size(context.Background(), "2024/01", "bundle")
	require.Nil(t, err)
	assert.Equal(t, n, size)
}

func TestSymlinkIsRelativeWhenInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := New(root, true)
	require.Nil(t, store.Prepare(context.Background()))

	srcDir := filepath.Join(root, "incoming")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	src := filepath.Join(srcDir, "source.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	_, err := store.Put(context.Background(), []string{src}, "2024/01", "source.txt", true)
	require.Nil(t, err)

	link := filepath.Join(root, "2024/01", "source.txt")
	target, lerr := os.Readlink(link)
	require.NoError(t, lerr)
	assert.False(t, filepath.IsAbs(target), "symlink target should be relative when source and destination share the storage root")
}

func TestRemoveAndNotExists(t *testing.T) {
	store := newTestStore(t)
	src := writeTempFile(t, "data")
	_, err := store.Put(context.Background(), []string{src}, "a", "p", false)
	require.Nil(t, err)

	require.Nil(t, store.Remove(context.Background(), "a", "p"))
	exists, err := store.Exists(context.Background(), "a", "p")
	require.Nil(t, err)
	assert.False(t, exists)
}

func TestHashIsStableForSameContent(t *testing.T) {
	store := newTestStore(t)
	src := writeTempFile(t, "consistent content")
	_, err := store.Put(context.Background(), []string{src}, "a", "p", false)
	require.Nil(t, err)

	h1, err := store.Hash(context.Background(), "a", "p", storage.HashSHA256)
	require.Nil(t, err)
	h2, err := store.Hash(context.Background(), "a", "p", storage.HashSHA256)
	require.Nil(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestPutFromStream(t *testing.T) {
	store := newTestStore(t)
	n, err := store.PutFromStream(context.Background(), bytes.NewReader([]byte("streamed")), "a", "p")
	require.Nil(t, err)
	assert.Equal(t, int64(len("streamed")), n)
}

func TestMoveWithin(t *testing.T) {
	store := newTestStore(t)
	src := writeTempFile(t, "data")
	_, err := store.Put(context.Background(), []string{src}, "a", "p", false)
	require.Nil(t, err)

	require.Nil(t, store.MoveWithin(context.Background(), "a", "p", "b", "q"))
	exists, err := store.Exists(context.Background(), "a", "p")
	require.Nil(t, err)
	assert.False(t, exists)
	exists, err = store.Exists(context.Background(), "b", "q")
	require.Nil(t, err)
	assert.True(t, exists)
}

func TestTempWorkspaceCleansUpOnClose(t *testing.T) {
	store := newTestStore(t)
	ws, err := store.TempWorkspace(context.Background())
	require.Nil(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "scratch.txt"), []byte("x"), 0o644))

	require.NoError(t, ws.Close())
	_, statErr := os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(statErr))
}
