package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	unsafeFileChars   = regexp.MustCompile(`[^a-zA-Z0-9\-_. ]`)
)

// FolderManager manages the per-submission batch folders under the staging
// directory
type FolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewFolderManager creates a new FolderManager
func NewFolderManager(baseDir string, logger *zap.Logger) *FolderManager {
	return &FolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateBatchFolder creates {baseDir}/{batchID}/ and returns its path
func (m *FolderManager) CreateBatchFolder(batchID string) (string, error) {
	if batchID == "" {
		return "", fmt.Errorf("cannot create folder: empty batch ID")
	}

	safeName := m.SanitizeFolderName(batchID)
	if safeName == "" {
		return "", fmt.Errorf("cannot create folder: batch ID %q has no usable characters", batchID)
	}
	folderPath := filepath.Join(m.baseDir, safeName)

	if err := os.MkdirAll(folderPath, 0755); err != nil {
		m.logger.Error("Failed to create batch folder",
			zap.String("batch_id", batchID),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	return folderPath, nil
}

// BatchFolderPath returns the path for a batch folder without creating it
func (m *FolderManager) BatchFolderPath(batchID string) string {
	return filepath.Join(m.baseDir, m.SanitizeFolderName(batchID))
}

// FolderExists checks if the batch folder exists
func (m *FolderManager) FolderExists(batchID string) bool {
	info, err := os.Stat(m.BatchFolderPath(batchID))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// DeleteBatchFolder removes a batch folder and all contents. Deleting a
// missing folder succeeds.
func (m *FolderManager) DeleteBatchFolder(batchID string) error {
	safeName := m.SanitizeFolderName(batchID)
	if safeName == "" {
		return nil
	}
	folderPath := filepath.Join(m.baseDir, safeName)

	if _, err := os.Stat(folderPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to delete batch folder",
			zap.String("batch_id", batchID),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

// PurgeStale removes batch folders last modified before cutoff, left behind
// by submissions that never finished
func (m *FolderManager) PurgeStale(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list staging directory: %w", err)
	}

	purged := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := m.DeleteBatchFolder(e.Name()); err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		m.logger.Info("Purged stale upload batches", zap.Int("count", purged))
	}
	return purged, nil
}

// SanitizeFolderName keeps only alphanumerics, hyphens and underscores
func (m *FolderManager) SanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeFolderChars.ReplaceAllString(name, "")
}

// SanitizeFileName strips any directory part and unsafe characters from an
// uploaded file name. An empty result becomes "attachment".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.TrimSpace(unsafeFileChars.ReplaceAllString(name, ""))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "attachment"
	}
	return name
}
