package archive

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/glorpus-work/biofetch/pkg/errors"
)

// Member is one extracted file: either the whole (possibly decompressed)
// download, or a single named entry of a multi-file archive. In buffered mode
// it holds the content in memory; in large mode it wraps an open decoding
// stream that the owner must close. Close is idempotent.
type Member struct {
	// Name is the member's path inside the archive, or the base name of the
	// downloaded file for single-file results.
	Name string

	// Size is the declared uncompressed size, -1 when unknown.
	Size int64

	data []byte
	rc   io.ReadCloser

	closeOnce sync.Once
	closeErr  error

	// release is called once after the member's own stream is closed; it lets
	// a shared outer handle (e.g. a zip reader) be freed when the last member
	// is done with it.
	release func() error
}

// newBufferedMember wraps fully read content.
func newBufferedMember(name string, data []byte) *Member {
	return &Member{Name: name, Size: int64(len(data)), data: data}
}

// newStreamMember wraps an open stream. release may be nil.
func newStreamMember(name string, size int64, rc io.ReadCloser, release func() error) *Member {
	return &Member{Name: name, Size: size, rc: rc, release: release}
}

// Buffered reports whether the member's content is held in memory.
func (m *Member) Buffered() bool {
	return m.rc == nil
}

// Bytes returns the in-memory content. For streamed members it reads the
// remainder of the stream, so it is single-shot in large mode.
func (m *Member) Bytes() ([]byte, error) {
	if m.rc == nil {
		return m.data, nil
	}
	data, err := io.ReadAll(m.rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Reader returns a reader over the member's content. Buffered members can be
// re-read by calling Reader again; streamed members are single-pass.
func (m *Member) Reader() io.Reader {
	if m.rc != nil {
		return m.rc
	}
	return bytes.NewReader(m.data)
}

// Lines returns a single-pass line iterator over the member's content.
// Closing the returned reader closes the member.
func (m *Member) Lines() *LineReader {
	if m.rc != nil {
		return NewLineReader(m)
	}
	return NewLineReader(io.NopCloser(bytes.NewReader(m.data)))
}

// DecodedLines returns a line iterator converting the member's content from
// the named character encoding to UTF-8 on the fly. An empty or UTF-8 name
// behaves like Lines.
func (m *Member) DecodedLines(encoding string) (*LineReader, error) {
	if isUTF8Name(encoding) {
		return m.Lines(), nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", encoding)
	}
	return NewLineReader(decodeCloser{
		Reader: enc.NewDecoder().Reader(m),
		closer: m,
	}), nil
}

// decodeCloser pairs a transforming reader with the member it drains, so
// closing the line iterator still releases the member's stream.
type decodeCloser struct {
	io.Reader
	closer io.Closer
}

func (d decodeCloser) Close() error {
	return d.closer.Close()
}

// Read implements io.Reader over the member's stream or buffer.
func (m *Member) Read(p []byte) (int, error) {
	if m.rc != nil {
		return m.rc.Read(p)
	}
	if len(m.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.data)
	m.data = m.data[n:]
	return n, nil
}

// Close releases the member's stream and any shared outer handle. Calling it
// more than once is a no-op.
func (m *Member) Close() error {
	m.closeOnce.Do(func() {
		if m.rc != nil {
			m.closeErr = m.rc.Close()
		}
		if m.release != nil {
			if err := m.release(); err != nil && m.closeErr == nil {
				m.closeErr = err
			}
		}
	})
	return m.closeErr
}

// refCloser closes an underlying handle once all members holding a reference
// have been closed.
type refCloser struct {
	mu     sync.Mutex
	count  int
	closer io.Closer
}

func newRefCloser(closer io.Closer) *refCloser {
	return &refCloser{closer: closer}
}

func (r *refCloser) acquire() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *refCloser) releaseFn() func() error {
	return func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.count--
		if r.count == 0 && r.closer != nil {
			c := r.closer
			r.closer = nil
			return c.Close()
		}
		return nil
	}
}

// closeNow closes the handle immediately if no references are held.
func (r *refCloser) closeNow() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 && r.closer != nil {
		c := r.closer
		r.closer = nil
		return c.Close()
	}
	return nil
}
