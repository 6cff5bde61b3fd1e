package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutWritesObjectAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "materials/2026/10/a.png", "image/png", strings.NewReader("data"), 4)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/materials/2026/10/a.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "materials", "2026", "10", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestPutRejectsEscapingKeys(t *testing.T) {
	store, err := New(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.png", "image/png", strings.NewReader("x"), 1)
	assert.Error(t, err)
}

func TestRemoveDeletesOwnedObjects(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "/uploads")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "materials/b.png", "image/png", strings.NewReader("x"), 1)
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "materials", "b.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(context.Background(), url), "removing twice is a no-op")
	assert.NoError(t, store.Remove(context.Background(), "https://example.com/cotton.jpg"))
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New(" ", "/uploads")
	assert.Error(t, err)
}
