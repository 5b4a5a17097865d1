// Package storage stages uploaded attachments on local disk until they are
// handed off to the payment API with the create call.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	// ErrPathEscapesBase is returned for paths outside the staging directory
	ErrPathEscapesBase = errors.New("path escapes base directory")
)

// DefaultMaxFileSize bounds a single staged upload
const DefaultMaxFileSize int64 = 10 << 20

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile streams r to fullPath, creating parent directories
	SaveFile(fullPath string, r io.Reader) (int64, error)

	// ValidatePath checks path security (no traversal, within base)
	ValidatePath(fullPath string) error
}

// LocalFileStorage implements FileStorage for local filesystem
type LocalFileStorage struct {
	baseDir string
	maxSize int64
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage. maxSize <= 0 uses
// DefaultMaxFileSize.
func NewLocalFileStorage(baseDir string, maxSize int64, logger *zap.Logger) *LocalFileStorage {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &LocalFileStorage{
		baseDir: baseDir,
		maxSize: maxSize,
		logger:  logger,
	}
}

// MaxSize returns the per-file limit in bytes
func (s *LocalFileStorage) MaxSize() int64 {
	return s.maxSize
}

// SaveFile writes r to fullPath. A file over the limit is removed and
// ErrFileTooLarge is returned.
func (s *LocalFileStorage) SaveFile(fullPath string, r io.Reader) (int64, error) {
	if err := s.ValidatePath(fullPath); err != nil {
		return 0, err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return 0, fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		s.logger.Error("Failed to create file",
			zap.String("path", fullPath),
			zap.Error(err))
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(fullPath)
		if errors.Is(err, ErrFileTooLarge) {
			return 0, fmt.Errorf("%s: %w", filepath.Base(fullPath), err)
		}
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File staged",
		zap.String("path", fullPath),
		zap.Int64("size", n))

	return n, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	// base + separator, so /tmp/up does not admit /tmp/up_other
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("%w: %s", ErrPathEscapesBase, fullPath)
	}

	return nil
}
