package fetch

import (
	"regexp"

	goversion "github.com/hashicorp/go-version"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// versionPattern matches the version part of a release file name, e.g.
// "chembl_35" or "mirbase-22.1.tar.gz".
var versionPattern = regexp.MustCompile(`(\d+(?:[._]\d+)*)`)

// LatestRelease picks the entry with the newest embedded version from a list
// of release names, as found in a remote directory listing. Names without a
// parseable version are ignored; an empty or versionless list is an error.
func LatestRelease(names []string) (string, error) {
	var bestName string
	var bestVersion *goversion.Version

	for _, name := range names {
		raw := versionPattern.FindString(name)
		if raw == "" {
			continue
		}
		v, err := goversion.NewVersion(normalizeVersion(raw))
		if err != nil {
			continue
		}
		if bestVersion == nil || v.GreaterThan(bestVersion) {
			bestName, bestVersion = name, v
		}
	}

	if bestVersion == nil {
		return "", pkgerrors.Wrapf(pkgerrors.ErrNoRelease,
			"among %d names", len(names))
	}
	return bestName, nil
}

// normalizeVersion turns underscore separators into dots so go-version can
// parse names like chembl_34_1.
func normalizeVersion(raw string) string {
	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '_' {
			out[i] = '.'
		} else {
			out[i] = raw[i]
		}
	}
	return string(out)
}
