package fetch

import (
	"io"
	"sync"

	"github.com/glorpus-work/biofetch/pkg/archive"
)

// Kind discriminates the payload shape of a Result.
type Kind int

// Result payload kinds.
const (
	// KindNone marks a result with no payload: dry runs and failures.
	KindNone Kind = iota

	// KindSingleBlob holds the whole decoded content in memory.
	KindSingleBlob

	// KindMultiFile holds one member per archive entry.
	KindMultiFile

	// KindLineStream exposes the content as a single-pass line iterator.
	KindLineStream

	// KindRawHandle exposes the content as an unread io.ReadCloser.
	KindRawHandle
)

// Result is the outcome of one fetch. Exactly one payload field matching Kind
// is populated. Close releases any open handles and is safe to call more than
// once; buffered results need no Close but tolerate one.
type Result struct {
	Kind Kind

	// Blob is the decoded content for KindSingleBlob.
	Blob []byte

	// Members maps archive entry names to their content for KindMultiFile.
	Members map[string]*archive.Member

	// Lines iterates the content line by line for KindLineStream.
	Lines *archive.LineReader

	// Handle is the raw content reader for KindRawHandle.
	Handle io.ReadCloser

	// Status is the protocol status code of the transfer, or 200 for cache
	// hits and local files.
	Status int

	// DownloadFailed is set when the transfer itself failed.
	DownloadFailed bool

	// FromCache is set when the content was served from the local cache
	// without network access.
	FromCache bool

	// Path is the local file backing this result.
	Path string

	State State

	closeOnce sync.Once
}

// Text returns the blob content as a string. It is empty for non-blob kinds.
func (r *Result) Text() string {
	return string(r.Blob)
}

// Member returns the named archive member, or nil. Convenience accessor for
// KindMultiFile results.
func (r *Result) Member(name string) *archive.Member {
	return r.Members[name]
}

// Close releases every handle the result owns. Safe to call multiple times.
func (r *Result) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.Lines != nil {
			err = r.Lines.Close()
		}
		if r.Handle != nil {
			if cerr := r.Handle.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		for _, m := range r.Members {
			if cerr := m.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}
