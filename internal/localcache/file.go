package localcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rookgm/brewtrack/internal/models"
)

// FileCache stores records as a JSON file
type FileCache struct {
	path string
}

// NewFileCache creates FileCache at path
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads records, missing or unreadable file is empty
func (fc *FileCache) Load(_ context.Context) []models.LocalOrderRecord {
	data, err := os.ReadFile(fc.path)
	if err != nil {
		return []models.LocalOrderRecord{}
	}
	return decode(data)
}

// Save writes records to a temporary file and renames it over the old one
func (fc *FileCache) Save(_ context.Context, records []models.LocalOrderRecord) error {
	data, err := encode(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fc.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fc.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fc.path)
}
