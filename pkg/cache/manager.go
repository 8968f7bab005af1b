// Package cache maps request identities to stable on-disk locations and
// decides whether a previous download can be reused.
package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// Manager owns one cache directory. Entries are append-only: distinct request
// identities map to distinct filenames, so concurrent fetches of different
// resources never contend for the same file.
type Manager struct {
	directory string
}

// NewManager creates a cache manager rooted at the given directory.
func NewManager(directory string) *Manager {
	return &Manager{directory: directory}
}

// NewDefaultManager creates a cache manager using the platform cache directory.
func NewDefaultManager() (*Manager, error) {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user cache directory")
	}
	if err := os.MkdirAll(cacheDir, fsutil.DirModePrivate); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return NewManager(cacheDir), nil
}

// EntryPath returns the on-disk location for a request identity, creating the
// cache directory if needed.
func (m *Manager) EntryPath(key, remoteName string) (string, error) {
	if m.directory == "" {
		return "", errors.ErrCacheDirectory
	}
	if err := os.MkdirAll(m.directory, fsutil.DirModePrivate); err != nil {
		return "", errors.Wrapf(err, "failed to create cache directory %s", m.directory)
	}
	return EntryPath(m.directory, key, remoteName), nil
}

// IsHit reports whether path holds a usable cached download. An empty file is
// always a miss: it is the residue of a failed transfer and forces a fresh
// download.
func (m *Manager) IsHit(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}

// Invalidate deletes the cache entry at path if present. Deletion failures are
// logged rather than raised so one unwritable file cannot take down a batch of
// independent fetches.
func (m *Manager) Invalidate(path string) {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return
	}
	logger.Warn("failed to remove cache entry", logger.Fields{
		"path":  path,
		"error": err.Error(),
	})
}

// Info describes the contents of the cache directory.
type Info struct {
	Directory string
	TotalSize int64
	Files     int
	Scanned   time.Time
}

// GetInfo returns size and file-count statistics for the cache directory.
func (m *Manager) GetInfo() (*Info, error) {
	size, count, err := dirSizeAndFiles(m.directory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cache info")
	}
	return &Info{
		Directory: m.directory,
		TotalSize: size,
		Files:     count,
		Scanned:   time.Now(),
	}, nil
}

// Clean removes every entry from the cache directory and returns the number of
// bytes freed. The directory itself is recreated empty.
func (m *Manager) Clean() (int64, error) {
	size, _, err := dirSizeAndFiles(m.directory)
	if err != nil {
		return 0, errors.Wrap(err, "failed to scan cache before cleaning")
	}

	if err := os.RemoveAll(m.directory); err != nil {
		return 0, errors.Wrapf(err, "failed to remove cache directory %s", m.directory)
	}
	if err := os.MkdirAll(m.directory, fsutil.DirModePrivate); err != nil {
		return size, errors.Wrapf(err, "failed to recreate cache directory %s", m.directory)
	}

	return size, nil
}

// Directory returns the cache directory path.
func (m *Manager) Directory() string {
	return m.directory
}

// dirSizeAndFiles calculates total file size and count under dir. A missing
// directory counts as empty.
func dirSizeAndFiles(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}
