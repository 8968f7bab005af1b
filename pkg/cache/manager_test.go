package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

func TestIsHit(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	tests := []struct {
		name  string
		setup func() string
		hit   bool
	}{
		{
			name: "missing file is a miss",
			setup: func() string {
				return filepath.Join(dir, "missing")
			},
			hit: false,
		},
		{
			name: "empty file is a miss",
			setup: func() string {
				p := filepath.Join(dir, "empty")
				require.NoError(t, os.WriteFile(p, nil, fsutil.FileModeDefault))
				return p
			},
			hit: false,
		},
		{
			name: "nonzero file is a hit",
			setup: func() string {
				p := filepath.Join(dir, "full")
				require.NoError(t, os.WriteFile(p, []byte("data"), fsutil.FileModeDefault))
				return p
			},
			hit: true,
		},
		{
			name: "directory is a miss",
			setup: func() string {
				p := filepath.Join(dir, "subdir")
				require.NoError(t, os.Mkdir(p, fsutil.DirModeDefault))
				return p
			},
			hit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hit, m.IsHit(tt.setup()))
		})
	}
}

func TestEntryPathCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	m := NewManager(dir)

	path, err := m.EntryPath("deadbeef", "x.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deadbeef-x.txt"), path)

	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestEntryPathEmptyDirectory(t *testing.T) {
	m := NewManager("")
	_, err := m.EntryPath("deadbeef", "x.txt")
	require.Error(t, err)
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	p := filepath.Join(dir, "entry")
	require.NoError(t, os.WriteFile(p, []byte("data"), fsutil.FileModeDefault))

	m.Invalidate(p)
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	// Invalidating a missing entry is a no-op.
	m.Invalidate(p)
}

func TestCleanAndInfo(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("12345"), fsutil.FileModeDefault))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("123"), fsutil.FileModeDefault))

	info, err := m.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.TotalSize)
	assert.Equal(t, 2, info.Files)
	assert.Equal(t, dir, info.Directory)

	freed, err := m.Clean()
	require.NoError(t, err)
	assert.Equal(t, int64(8), freed)

	// Directory recreated empty.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	info, err = m.GetInfo()
	require.NoError(t, err)
	assert.Zero(t, info.TotalSize)
	assert.Zero(t, info.Files)
}

func TestGetInfoMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	info, err := m.GetInfo()
	require.NoError(t, err)
	assert.Zero(t, info.TotalSize)
	assert.Zero(t, info.Files)
}
