package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRemove(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)

	path, err := s.Save("msg-1", "invoice.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "msg-1/"))
	assert.True(t, strings.HasSuffix(path, ".pdf"), "original extension must be kept")

	data, err := os.ReadFile(filepath.Join(s.Dir(), filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	require.NoError(t, s.Remove(path))
	_, err = os.ReadFile(filepath.Join(s.Dir(), filepath.FromSlash(path)))
	assert.Error(t, err)
}

func TestSaveGeneratesUniquePaths(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	first, err := s.Save("msg-1", "a.png", []byte("one"))
	require.NoError(t, err)
	second, err := s.Save("msg-1", "a.png", []byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestPublicURL(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/attachments/msg-1/a.png", s.PublicURL("msg-1/a.png"))
}
