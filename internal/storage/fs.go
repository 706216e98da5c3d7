package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem stores artifacts as files in a single directory.
type Filesystem struct {
	root string
}

// NewFilesystem returns a store rooted at dir. The directory is created on
// the first Put, not here, so that reads against a missing directory report
// ErrNotFound.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		dir = "data"
	}
	return &Filesystem{root: dir}, nil
}

// Root returns the directory holding the artifacts.
func (f *Filesystem) Root() string { return f.root }

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

func (f *Filesystem) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Location returns the file path for key.
func (f *Filesystem) Location(key string) string {
	p, err := f.path(key)
	if err != nil {
		return ""
	}
	return p
}

// Put writes r to a temporary file beside the destination and renames it into
// place.
func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader) (Info, error) {
	dest, err := f.path(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Info{}, fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return Info{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("close %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return Info{}, err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("rename file: %w", err)
	}
	return f.Head(ctx, key)
}

// Get opens the file for key.
func (f *Filesystem) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return file, nil
}

// Head stats the file for key.
func (f *Filesystem) Head(_ context.Context, key string) (Info, error) {
	p, err := f.path(key)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return Info{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return Info{Key: key, Size: st.Size(), LastModified: st.ModTime(), Location: p}, nil
}
