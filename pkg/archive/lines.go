package archive

import (
	"bufio"
	"io"
	"sync"
)

// maxLineSize bounds the scanner buffer. Some bioinformatics dumps carry very
// long records (whole sequences on one line), so the cap is generous.
const maxLineSize = 64 * 1024 * 1024

// LineReader iterates over the lines of a text stream without buffering the
// whole content in memory. Iteration is single-pass: once exhausted the stream
// can only be restarted by reopening the source. Close is idempotent.
type LineReader struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner

	closeOnce sync.Once
	closeErr  error
}

// NewLineReader wraps an open stream in a line iterator. The LineReader takes
// ownership of the stream and closes it on Close.
func NewLineReader(rc io.ReadCloser) *LineReader {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &LineReader{rc: rc, scanner: scanner}
}

// Scan advances to the next line. It returns false at end of input or on error;
// check Err after a false return.
func (l *LineReader) Scan() bool {
	return l.scanner.Scan()
}

// Text returns the current line without its trailing newline.
func (l *LineReader) Text() string {
	return l.scanner.Text()
}

// Bytes returns the current line without its trailing newline. The slice is
// only valid until the next Scan call.
func (l *LineReader) Bytes() []byte {
	return l.scanner.Bytes()
}

// Err returns the first error encountered during scanning, excluding io.EOF.
func (l *LineReader) Err() error {
	return l.scanner.Err()
}

// Close releases the underlying stream. Calling it more than once is a no-op.
func (l *LineReader) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.rc.Close()
	})
	return l.closeErr
}
