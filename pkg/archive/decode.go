package archive

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/glorpus-work/biofetch/internal/logger"
)

// DecodeText converts raw downloaded bytes to UTF-8 text on a best-effort
// basis: a declared non-UTF-8 encoding is honored first, then already-valid
// UTF-8 passes through, then Latin-1 is assumed, and as a last resort the raw
// bytes come back unmodified with a warning. Downstream text processing
// tolerates mis-decoded legacy text far better than a hard failure in the
// middle of a batch, so this never returns an error.
func DecodeText(data []byte, declaredEncoding string) []byte {
	if isUTF8Name(declaredEncoding) {
		declaredEncoding = ""
	}

	if declaredEncoding != "" {
		if enc, err := htmlindex.Get(declaredEncoding); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return decoded
			}
		} else {
			logger.Warn("unknown declared encoding, falling back", logger.Fields{
				"encoding": declaredEncoding,
			})
		}
	}

	if utf8.Valid(data) {
		return data
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err == nil {
		return decoded
	}

	logger.Warn("could not decode text to UTF-8, returning raw bytes", logger.Fields{
		"bytes": len(data),
	})
	return data
}

// isUTF8Name reports whether the encoding name already denotes UTF-8 (or is
// empty / plain ASCII, which needs no conversion).
func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return true
	default:
		return false
	}
}
