package archive

import (
	"io"
	"os"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// Transcode rewrites the plain-text file at path in place, converting it from
// the given character encoding to UTF-8. The conversion streams through a
// temporary file which is then swapped over the original, so a crash mid-way
// never leaves a half-converted file behind. Files already in UTF-8 (or with
// no declared encoding) are left untouched. Only plain files are transcoded;
// archives keep their original bytes.
func Transcode(path, fromEncoding string) error {
	if isUTF8Name(fromEncoding) {
		return nil
	}

	enc, err := htmlindex.Get(fromEncoding)
	if err != nil {
		return errors.Wrapf(err, "unknown encoding %q", fromEncoding)
	}

	src, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s for transcoding", path)
	}
	defer src.Close()

	decoder := enc.NewDecoder().Reader(src)

	return fsutil.ReplaceFile(path, func(w io.Writer) error {
		if _, err := io.Copy(w, decoder); err != nil {
			return errors.Wrapf(err, "failed to transcode %s from %s", path, fromEncoding)
		}
		return nil
	})
}
