// Package archive inspects downloaded files and extracts their content as
// in-memory blobs or lazy streams. Supported containers: plain files, gzip,
// zip and tar.gz.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/mholt/archives"

	"github.com/glorpus-work/biofetch/pkg/errors"
)

// OpenPlain opens an uncompressed file. In large mode the returned member
// wraps the open file handle for streaming; otherwise the whole file is read
// into memory and the handle closed immediately.
func OpenPlain(filePath string, large bool) (*Member, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filePath)
	}

	if large {
		st, statErr := f.Stat()
		size := int64(-1)
		if statErr == nil {
			size = st.Size()
		}
		return newStreamMember(path.Base(filePath), size, f, nil), nil
	}

	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filePath)
	}
	return newBufferedMember(path.Base(filePath), data), nil
}

// OpenGzip opens a gzip-compressed single file. In large mode decompression is
// streamed; otherwise the whole content is decompressed into memory.
func OpenGzip(filePath string, large bool) (*Member, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filePath)
	}

	gz, err := archives.Gz{}.OpenReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(errors.ErrCorruptArchive, "%s: %v", filePath, err)
	}

	name := path.Base(filePath)
	if ext := path.Ext(name); ext == ".gz" {
		name = name[:len(name)-len(ext)]
	}

	if large {
		return newStreamMember(name, -1, &stackedCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil), nil
	}

	data, err := io.ReadAll(gz)
	_ = gz.Close()
	_ = f.Close()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptArchive, "%s: %v", filePath, err)
	}
	return newBufferedMember(name, data), nil
}

// OpenZip extracts members of a zip archive. See openMulti for semantics.
func OpenZip(ctx context.Context, filePath string, filesNeeded []string, large bool) (map[string]*Member, error) {
	return openMulti(ctx, filePath, filesNeeded, large)
}

// OpenTarGz extracts members of a tar.gz archive. See openMulti for semantics.
func OpenTarGz(ctx context.Context, filePath string, filesNeeded []string, large bool) (map[string]*Member, error) {
	return openMulti(ctx, filePath, filesNeeded, large)
}

// openMulti lists the members of a multi-file archive and extracts the
// requested subset (all regular members when filesNeeded is nil). Directory
// entries are skipped. In buffered mode every member is read into memory and
// the archive handle closed before returning; in large mode the members hold
// open decoding streams and the archive handle is released when the last
// member is closed.
func openMulti(ctx context.Context, filePath string, filesNeeded []string, large bool) (map[string]*Member, error) {
	fsys, err := archives.FileSystem(ctx, filePath, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptArchive, "%s: %v", filePath, err)
	}

	ref := newRefCloser(closerOf(fsys))

	var needed map[string]bool
	if filesNeeded != nil {
		needed = make(map[string]bool, len(filesNeeded))
		for _, name := range filesNeeded {
			needed[name] = true
		}
	}

	members := make(map[string]*Member)
	walkErr := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." || d.IsDir() {
			return nil
		}
		if needed != nil && !needed[p] && !needed[path.Base(p)] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to stat archive member %s", p)
		}
		if info.Size() == 0 {
			return nil
		}

		member, err := openMember(fsys, ref, p, info.Size(), large)
		if err != nil {
			return err
		}
		members[p] = member
		return nil
	})
	if walkErr != nil {
		for _, m := range members {
			_ = m.Close()
		}
		_ = ref.closeNow()
		return nil, errors.Wrapf(errors.ErrCorruptArchive, "%s: %v", filePath, walkErr)
	}

	if needed != nil {
		for name := range needed {
			if _, ok := members[name]; !ok && !hasBase(members, name) {
				for _, m := range members {
					_ = m.Close()
				}
				_ = ref.closeNow()
				return nil, errors.Wrapf(errors.ErrMemberNotFound, "%s in %s", name, filePath)
			}
		}
	}

	// In buffered mode nothing holds a reference, so this closes the archive.
	_ = ref.closeNow()

	return members, nil
}

func openMember(fsys fs.FS, ref *refCloser, p string, size int64, large bool) (*Member, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open archive member %s", p)
	}

	if large {
		ref.acquire()
		return newStreamMember(p, size, f, ref.releaseFn()), nil
	}

	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read archive member %s", p)
	}
	return newBufferedMember(p, data), nil
}

func hasBase(members map[string]*Member, name string) bool {
	for p := range members {
		if path.Base(p) == name {
			return true
		}
	}
	return false
}

// closerOf returns the fs.FS as an io.Closer when it supports closing.
func closerOf(fsys fs.FS) io.Closer {
	if c, ok := fsys.(io.Closer); ok {
		return c
	}
	return nil
}

// stackedCloser reads from Reader and closes a stack of underlying handles.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
