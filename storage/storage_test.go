package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsEscapingPath(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Open(context.Background(), "a/../../b")
	require.Error(t, err)
}

func TestOpenRejectsFileScheme(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Open(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
}

func TestOpenRejectsRootedAbsolutePath(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Open(context.Background(), "/etc/passwd")
	require.Error(t, err)
}

func TestOpenReadsRelativeLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive.zip"), []byte("payload"), 0o644))

	s := New(dir)
	r, err := s.Open(context.Background(), "archive.zip")
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 7)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
}
