package archive

import "strings"

// Type identifies the container format of a downloaded file.
type Type int

// Supported archive types.
const (
	// TypeUnset means no explicit override; the type is sniffed from the name.
	TypeUnset Type = iota
	TypePlain
	TypeGzip
	TypeZip
	TypeTarGz
)

// String returns the human-readable name of the type.
func (t Type) String() string {
	switch t {
	case TypePlain:
		return "plain"
	case TypeGzip:
		return "gzip"
	case TypeZip:
		return "zip"
	case TypeTarGz:
		return "tar.gz"
	default:
		return "unset"
	}
}

// Sniff determines the archive type from the filename suffix. An explicit
// override wins over the suffix; unknown suffixes default to plain.
func Sniff(filename string, override Type) Type {
	if override != TypeUnset {
		return override
	}

	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return TypeZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TypeTarGz
	case strings.HasSuffix(name, ".gz"):
		return TypeGzip
	default:
		return TypePlain
	}
}
