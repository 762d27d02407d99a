package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File writes each key as a file under a root directory.
type File struct {
	dir string
}

// NewFile creates a File sink rooted at dir. The directory is created on
// the first write.
func NewFile(dir string) *File {
	if dir == "" {
		dir = "."
	}
	return &File{dir: dir}
}

func (f *File) Name() string { return "file" }

// Path returns where key is stored.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key)
}

// Put writes data to a temp file next to the target and renames it into
// place.
func (f *File) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" || strings.Contains(key, "..") || filepath.IsAbs(key) {
		return fmt.Errorf("file sink: invalid key %q", key)
	}

	target := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("file sink: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file sink: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file sink: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file sink: close %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file sink: chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file sink: rename %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
