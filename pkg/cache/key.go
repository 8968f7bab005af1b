package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// Key computes the stable cache key for one request identity: the URL, the
// canonicalized query parameters, the canonicalized POST form fields and any
// raw binary payload. Field insertion order does not affect the key; any
// change to URL, a query or form value or the payload does. SHA-256 keeps
// deliberately colliding keys out of reach even when request parameters come
// from untrusted input.
func Key(rawURL string, query, post url.Values, binary []byte) string {
	h := sha256.New()
	h.Write([]byte(rawURL))

	// Distinct section prefixes keep a query parameter from aliasing an
	// identical form field.
	writeValues(h, "?", query)
	writeValues(h, "\n", post)

	if len(binary) > 0 {
		h.Write(binary)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeValues(h hash.Hash, prefix string, v url.Values) {
	if len(v) == 0 {
		return
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		values := append([]string(nil), v[k]...)
		sort.Strings(values)
		for _, val := range values {
			pairs = append(pairs, k+"="+val)
		}
	}
	h.Write([]byte(prefix + strings.Join(pairs, "&")))
}

// EntryPath maps a cache key and the remote filename to the on-disk location
// of the cache entry: <dir>/<key>-<sanitized-name>. The remote name is only
// cosmetic (it drives archive type sniffing); the key alone identifies the
// entry.
func EntryPath(dir, key, remoteName string) string {
	name := key
	if remoteName != "" {
		name += "-" + fsutil.SanitizeFilename(remoteName)
	}
	return filepath.Join(dir, name)
}

// RemoteFilename extracts the filename portion of a URL, ignoring query and
// fragment. Returns an empty string when the URL has no path component.
func RemoteFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Fall back to everything after the last slash.
		if i := strings.LastIndex(rawURL, "/"); i >= 0 {
			return rawURL[i+1:]
		}
		return rawURL
	}
	base := filepath.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
