package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutOverwritesInPlace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")
	store, err := NewFSStore(dir, "/files/")
	require.NoError(t, err)

	key := InvoiceKey(uuid.New())

	first, err := store.Put(context.Background(), key, []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, "/files/"+key, first)

	second, err := store.Put(context.Background(), key, []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "location is stable across regeneration")

	rc, err := store.Open(context.Background(), second)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFSStore_OpenMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "/files")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "/files/nope.pdf")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFSStore_OpenIgnoresDirectoryTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.pdf"), []byte("x"), 0o600))

	store, err := NewFSStore(filepath.Join(root, "invoices"), "/files")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "/files/../secret.pdf")
	assert.Error(t, err)
}
