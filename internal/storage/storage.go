// Package storage persists curated artifacts under well-known keys. Writes
// replace an existing artifact wholesale; readers never see a partial write.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs" // local directory (default)
	DriverS3         Driver = "s3" // S3 / MinIO compatible bucket
)

// ErrNotFound is returned by Get and Head when no artifact exists at the key.
var ErrNotFound = errors.New("storage: artifact not found")

// Info describes a stored artifact.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
	Location     string // human-readable path or URL
}

// Store reads and writes artifacts by key.
type Store interface {
	// Put stores r at key, replacing any existing artifact.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get opens the artifact at key. Returns an error wrapping ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Location returns where key is (or would be) stored.
	Location(key string) string
	// Driver returns the backend driver.
	Driver() Driver
}

// Config selects and configures a backend.
type Config struct {
	Driver string
	Dir    string // root directory when Driver is fs
	S3     S3Config
}

// Open constructs the Store described by cfg. An empty driver selects the
// filesystem backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
