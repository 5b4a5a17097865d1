package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StagedFile is one upload written to disk
type StagedFile struct {
	FileName string
	Path     string
	Size     int64
}

// Stager hands out upload batches, one per form submission
type Stager struct {
	folders *FolderManager
	files   *LocalFileStorage
	logger  *zap.Logger
}

// NewStager creates a Stager rooted at baseDir
func NewStager(baseDir string, maxFileSize int64, logger *zap.Logger) *Stager {
	return &Stager{
		folders: NewFolderManager(baseDir, logger),
		files:   NewLocalFileStorage(baseDir, maxFileSize, logger),
		logger:  logger,
	}
}

// MaxFileSize returns the per-file upload limit in bytes
func (s *Stager) MaxFileSize() int64 {
	return s.files.MaxSize()
}

// Folders exposes the batch folder manager
func (s *Stager) Folders() *FolderManager {
	return s.folders
}

// NewBatch creates an empty batch folder
func (s *Stager) NewBatch() (*Batch, error) {
	id := uuid.NewString()
	dir, err := s.folders.CreateBatchFolder(id)
	if err != nil {
		return nil, err
	}
	return &Batch{id: id, dir: dir, stager: s}, nil
}

// Batch collects the files of one submission. Cleanup removes them all.
type Batch struct {
	id     string
	dir    string
	stager *Stager

	mu    sync.Mutex
	files []StagedFile
}

// ID returns the batch id
func (b *Batch) ID() string {
	return b.id
}

// MaxFileSize returns the per-file upload limit in bytes
func (b *Batch) MaxFileSize() int64 {
	return b.stager.MaxFileSize()
}

// Stage writes one upload into the batch. File names are sanitized and
// prefixed with their position so duplicates do not collide.
func (b *Batch) Stage(fileName string, r io.Reader) (StagedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := SanitizeFileName(fileName)
	path := filepath.Join(b.dir, fmt.Sprintf("%03d_%s", len(b.files), name))

	n, err := b.stager.files.SaveFile(path, r)
	if err != nil {
		return StagedFile{}, fmt.Errorf("failed to stage %s: %w", name, err)
	}

	sf := StagedFile{FileName: name, Path: path, Size: n}
	b.files = append(b.files, sf)
	return sf, nil
}

// Files returns the staged files in staging order
func (b *Batch) Files() []StagedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StagedFile(nil), b.files...)
}

// Cleanup deletes the batch folder
func (b *Batch) Cleanup() {
	if err := b.stager.folders.DeleteBatchFolder(b.id); err != nil {
		b.stager.logger.Warn("Failed to clean up upload batch",
			zap.String("batch_id", b.id),
			zap.Error(err))
	}
}
