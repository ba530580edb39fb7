package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)

	name, err := store.Save("Movie Night.MP4", strings.NewReader("video-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mp4"), "extension must be kept, lowercased: %s", name)
	assert.NotContains(t, name, "Movie", "stored name must not leak the client filename")

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestSave_UniqueNames(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save("a.webm", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save("a.webm", strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSave_RejectsUnsupportedTypes(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, filename := range []string{"a.exe", "a.mp3", "noext", "a.mp4.txt"} {
		_, err := store.Save(filename, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsupportedType, "filename %s", filename)
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not leave files behind")
}

func TestNew_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "media")

	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
