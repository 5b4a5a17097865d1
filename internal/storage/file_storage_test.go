package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveFile(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, 0, zap.NewNop())

	t.Run("saves file successfully", func(t *testing.T) {
		fullPath := filepath.Join(tempDir, "batch-1", "invoice.pdf")
		content := []byte("PDF content here")

		n, err := fs.SaveFile(fullPath, bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), n)
		saved, err := os.ReadFile(fullPath)
		require.NoError(t, err)
		assert.Equal(t, content, saved)
	})

	t.Run("creates parent directories", func(t *testing.T) {
		fullPath := filepath.Join(tempDir, "deep", "nested", "dir", "file.pdf")

		_, err := fs.SaveFile(fullPath, strings.NewReader("content"))

		require.NoError(t, err)
		assert.FileExists(t, fullPath)
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		fullPath := filepath.Join(tempDir, "overwrite", "file.txt")

		_, err := fs.SaveFile(fullPath, strings.NewReader("original"))
		require.NoError(t, err)
		_, err = fs.SaveFile(fullPath, strings.NewReader("updated"))
		require.NoError(t, err)

		content, _ := os.ReadFile(fullPath)
		assert.Equal(t, []byte("updated"), content)
	})

	t.Run("saves empty file", func(t *testing.T) {
		fullPath := filepath.Join(tempDir, "empty.txt")
		n, err := fs.SaveFile(fullPath, strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestLocalFileStorage_SizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, 4, zap.NewNop())
	fullPath := filepath.Join(tempDir, "big.bin")

	_, err := fs.SaveFile(fullPath, strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NoFileExists(t, fullPath)

	n, err := fs.SaveFile(fullPath, strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, int64(4), fs.MaxSize())
}

func TestLocalFileStorage_ValidatePath(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, 0, zap.NewNop())

	t.Run("accepts valid path within base", func(t *testing.T) {
		assert.NoError(t, fs.ValidatePath(filepath.Join(tempDir, "batch", "file.pdf")))
	})

	t.Run("rejects path outside base directory", func(t *testing.T) {
		err := fs.ValidatePath("/etc/passwd")
		assert.ErrorIs(t, err, ErrPathEscapesBase)
	})

	t.Run("rejects path traversal attempt", func(t *testing.T) {
		err := fs.ValidatePath(filepath.Join(tempDir, "..", "..", "etc", "passwd"))
		assert.ErrorIs(t, err, ErrPathEscapesBase)
	})

	t.Run("rejects path with similar prefix", func(t *testing.T) {
		err := fs.ValidatePath(tempDir + "_malicious/file.txt")
		assert.ErrorIs(t, err, ErrPathEscapesBase)
	})

	t.Run("save refuses escaping path", func(t *testing.T) {
		_, err := fs.SaveFile(filepath.Join(tempDir, "..", "escaped.txt"), strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrPathEscapesBase)
	})
}
