package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	require.NoError(t, EnsureDir(dir))

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, EnsureDir(file), "a file in the way is an error")
}

func TestCleanPathInput(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := map[string]string{
		`  /tmp/me.jpg `:          "/tmp/me.jpg",
		`'/tmp/my photo.png'`:     "/tmp/my photo.png",
		`"/tmp/a.jpg"`:            "/tmp/a.jpg",
		`/tmp/my\ photo.png`:      "/tmp/my photo.png",
		`~/Pictures/me.jpg`:       filepath.Join(home, "Pictures", "me.jpg"),
		`https://x.test/a\ b.jpg`: `https://x.test/a\ b.jpg`,
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanPathInput(in), in)
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2<<20))
}
