package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  error
	}{
		{
			name:     "default port",
			url:      "ftp://ftp.ensembl.org/pub/release-110/gtf/README",
			wantHost: "ftp.ensembl.org:21",
			wantPath: "/pub/release-110/gtf/README",
		},
		{
			name:     "explicit port",
			url:      "ftp://ftp.example.org:2121/data.txt",
			wantHost: "ftp.example.org:2121",
			wantPath: "/data.txt",
		},
		{
			name:    "wrong scheme",
			url:     "https://example.org/data.txt",
			wantErr: pkgerrors.ErrUnknownScheme,
		},
		{
			name:    "missing path",
			url:     "ftp://ftp.example.org",
			wantErr: pkgerrors.ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestHostOnly(t *testing.T) {
	assert.Equal(t, "ftp.example.org", hostOnly("ftp.example.org:21"))
	assert.Equal(t, "ftp.example.org", hostOnly("ftp.example.org"))
}

func TestFTPFetchFailureKeepsExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "entry.txt")
	require.NoError(t, os.WriteFile(dest, []byte("previous good copy"), 0o600))

	tr := NewFTPTransport(nil)
	// Port 1 is never listening, so every attempt fails at dial time.
	_, err := tr.Fetch(context.Background(), &Request{
		URL:            "ftp://127.0.0.1:1/pub/entry.txt",
		Retries:        1,
		ConnectTimeout: time.Second,
		Silent:         true,
	}, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous good copy", string(data), "failed transfer must not remove an existing entry")
}
