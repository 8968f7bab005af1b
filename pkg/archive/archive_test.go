package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/biofetch/pkg/errors"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		override Type
		expected Type
	}{
		{name: "zip suffix", filename: "data.zip", expected: TypeZip},
		{name: "tar.gz suffix", filename: "dump.tar.gz", expected: TypeTarGz},
		{name: "tgz suffix", filename: "dump.tgz", expected: TypeTarGz},
		{name: "gz suffix", filename: "table.txt.gz", expected: TypeGzip},
		{name: "plain default", filename: "table.txt", expected: TypePlain},
		{name: "no extension", filename: "README", expected: TypePlain},
		{name: "case insensitive", filename: "DATA.ZIP", expected: TypeZip},
		{name: "override wins", filename: "data.zip", override: TypeGzip, expected: TypeGzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sniff(tt.filename, tt.override))
		})
	}
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeTarGz(t *testing.T, entries map[string]string, dirs []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, dir := range dirs {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     dir,
			Typeflag: tar.TypeDir,
			Mode:     0o755,
		}))
	}
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeGzip(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpenPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\n"), 0o644))

	t.Run("buffered", func(t *testing.T) {
		m, err := OpenPlain(path, false)
		require.NoError(t, err)
		defer m.Close()

		assert.True(t, m.Buffered())
		data, err := m.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "line1\nline2\n", string(data))
	})

	t.Run("large streams lines", func(t *testing.T) {
		m, err := OpenPlain(path, true)
		require.NoError(t, err)

		assert.False(t, m.Buffered())
		lines := m.Lines()
		defer lines.Close()

		var got []string
		for lines.Scan() {
			got = append(got, lines.Text())
		}
		require.NoError(t, lines.Err())
		assert.Equal(t, []string{"line1", "line2"}, got)
	})
}

func TestOpenGzipRoundTrip(t *testing.T) {
	const content = "interaction_a\tinteraction_b\nTP53\tMDM2\n"
	path := writeGzip(t, content)

	tests := []struct {
		name  string
		large bool
	}{
		{name: "buffered", large: false},
		{name: "large", large: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := OpenGzip(path, tt.large)
			require.NoError(t, err)
			defer m.Close()

			data, err := m.Bytes()
			require.NoError(t, err)
			assert.Equal(t, content, string(data))
			assert.Equal(t, "fixture.txt", m.Name)
		})
	}
}

func TestOpenGzipCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0o644))

	_, err := OpenGzip(path, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCorruptArchive)
}

func TestOpenZip(t *testing.T) {
	path := writeZip(t, map[string]string{
		"a.txt": "hello",
		"b.txt": "world",
	})

	t.Run("all members", func(t *testing.T) {
		members, err := OpenZip(context.Background(), path, nil, false)
		require.NoError(t, err)
		require.Len(t, members, 2)

		a, err := members["a.txt"].Bytes()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(a))

		b, err := members["b.txt"].Bytes()
		require.NoError(t, err)
		assert.Equal(t, "world", string(b))
	})

	t.Run("files needed subset", func(t *testing.T) {
		members, err := OpenZip(context.Background(), path, []string{"a.txt"}, false)
		require.NoError(t, err)
		require.Len(t, members, 1)

		a, err := members["a.txt"].Bytes()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(a))
	})

	t.Run("missing member", func(t *testing.T) {
		_, err := OpenZip(context.Background(), path, []string{"nope.txt"}, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMemberNotFound)
	})

	t.Run("large mode streams members", func(t *testing.T) {
		members, err := OpenZip(context.Background(), path, nil, true)
		require.NoError(t, err)
		require.Len(t, members, 2)

		for _, m := range members {
			assert.False(t, m.Buffered())
		}

		a, err := members["a.txt"].Bytes()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(a))

		for _, m := range members {
			require.NoError(t, m.Close())
			// Double close must be a no-op.
			require.NoError(t, m.Close())
		}
	})
}

func TestOpenTarGz(t *testing.T) {
	path := writeTarGz(t, map[string]string{
		"data/a.txt": "hello",
		"data/b.txt": "world",
	}, []string{"data/"})

	members, err := OpenTarGz(context.Background(), path, nil, false)
	require.NoError(t, err)
	require.Len(t, members, 2)

	a, err := members["data/a.txt"].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(a))

	// files_needed may name a member by base name.
	members, err = OpenTarGz(context.Background(), path, []string{"b.txt"}, false)
	require.NoError(t, err)
	require.Len(t, members, 1)
	b, err := members["data/b.txt"].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "world", string(b))
}

func TestLineReaderClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	m, err := OpenPlain(path, true)
	require.NoError(t, err)

	lines := m.Lines()
	require.True(t, lines.Scan())
	require.NoError(t, lines.Close())
	require.NoError(t, lines.Close())
}

func TestMemberReaderBuffered(t *testing.T) {
	m := newBufferedMember("x", []byte("content"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(m.Reader())
	require.NoError(t, err)
	assert.Equal(t, "content", buf.String())

	// Buffered members can be re-read.
	buf.Reset()
	_, err = buf.ReadFrom(m.Reader())
	require.NoError(t, err)
	assert.Equal(t, "content", buf.String())
}
