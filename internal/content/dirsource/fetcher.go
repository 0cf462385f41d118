// Package dirsource reads the content store from a local directory.
package dirsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/metrics"
)

// Config captures the parameters for the directory-backed content store.
type Config struct {
	// RootDir is the directory that contains the content/ tree.
	RootDir string `mapstructure:"root_dir" yaml:"root_dir"`
}

// Fetcher implements content.Fetcher on top of a directory.
type Fetcher struct {
	root string
	fsys fs.FS
}

// New creates a directory-backed fetcher.
func New(cfg Config) (*Fetcher, error) {
	if strings.TrimSpace(cfg.RootDir) == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	info, err := os.Stat(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root directory path is not a directory")
	}
	return &Fetcher{
		root: cfg.RootDir,
		fsys: os.DirFS(cfg.RootDir),
	}, nil
}

// Root returns the directory the fetcher reads from.
func (f *Fetcher) Root() string {
	return f.root
}

// Fetch reads the document stored at path, relative to the root directory.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := f.read(ctx, path)
	metrics.ObserveContentFetch("dir", outcome(err), time.Since(start))
	return data, err
}

func (f *Fetcher) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	name := strings.TrimPrefix(path, "/")
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid content path %q", path)
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, content.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, content.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
