package fetch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fetch"
)

func TestLatestRelease(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{
			name:  "underscore versions",
			names: []string{"chembl_33.tar.gz", "chembl_35.tar.gz", "chembl_34.tar.gz"},
			want:  "chembl_35.tar.gz",
		},
		{
			name:  "dotted versions",
			names: []string{"mirbase-21.tar.gz", "mirbase-22.1.tar.gz", "mirbase-22.tar.gz"},
			want:  "mirbase-22.1.tar.gz",
		},
		{
			name:  "mixed with versionless entries",
			names: []string{"README", "release-109", "release-110", "latest"},
			want:  "release-110",
		},
		{
			name:  "single entry",
			names: []string{"uniprot_2024_03.tsv"},
			want:  "uniprot_2024_03.tsv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetch.LatestRelease(tt.names)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatestReleaseNoVersions(t *testing.T) {
	_, err := fetch.LatestRelease([]string{"README", "latest"})
	assert.ErrorIs(t, err, pkgerrors.ErrNoRelease)

	_, err = fetch.LatestRelease(nil)
	assert.ErrorIs(t, err, pkgerrors.ErrNoRelease)
}
