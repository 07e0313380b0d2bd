package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
)

// FileStore is a KeyValueStore keeping one file per key, with optional
// rotation of previous versions.
type FileStore struct {
	basePath string
	versions int
	logger   *common.Logger
	mu       sync.Mutex
}

// NewFileStore creates the base directory if needed.
func NewFileStore(logger *common.Logger, config *common.FileConfig) (*FileStore, error) {
	versions := config.Versions
	if versions < 0 {
		versions = 0
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Int("versions", versions).Msg("FileStore opened")
	return &FileStore{
		basePath: config.Path,
		versions: versions,
		logger:   logger,
	}, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) filePath(key string) string {
	return filepath.Join(fs.basePath, sanitizeKey(key)+".json")
}

func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	path := fs.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("'%s': %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Set writes the value atomically: temp file in the same directory, then
// rename over the target. The target is never absent while a write is in
// progress; previous content is linked into the version chain first.
func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	target := fs.filePath(key)

	tmpFile, err := os.CreateTemp(fs.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(value); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if fs.versions > 0 {
		fs.rotateVersions(target)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rotateVersions shifts existing versions up and preserves current as v1
// without moving it.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1 (link or copy)
func (fs *FileStore) rotateVersions(target string) {
	os.Remove(fmt.Sprintf("%s.v%d", target, fs.versions))

	for i := fs.versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		os.Rename(src, dst) // may not exist yet
	}

	v1 := fmt.Sprintf("%s.v1", target)
	os.Remove(v1)
	if _, err := os.Stat(target); err != nil {
		return
	}
	if err := os.Link(target, v1); err == nil {
		return
	}
	if err := copyFile(target, v1); err != nil {
		fs.logger.Warn().Err(err).Str("path", target).Msg("Failed to keep previous version")
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// Close is a no-op; files are closed after every write.
func (fs *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements KeyValueStore
var _ interfaces.KeyValueStore = (*FileStore)(nil)
