package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/biofetch/pkg/credentials"
	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

func TestParseSFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  error
	}{
		{
			name:     "default port",
			url:      "sftp://data.example.org/datasets/expr.tsv",
			wantHost: "data.example.org:22",
			wantPath: "/datasets/expr.tsv",
		},
		{
			name:     "explicit port",
			url:      "sftp://data.example.org:2222/file.bin",
			wantHost: "data.example.org:2222",
			wantPath: "/file.bin",
		},
		{
			name:    "wrong scheme",
			url:     "ftp://data.example.org/file.bin",
			wantErr: pkgerrors.ErrUnknownScheme,
		},
		{
			name:    "missing path",
			url:     "sftp://data.example.org",
			wantErr: pkgerrors.ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseSFTPURL(tt.url)
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

func TestSFTPTransportRequiresProvider(t *testing.T) {
	tr := NewSFTPTransport(nil)
	dest := filepath.Join(t.TempDir(), "out.bin")

	_, err := tr.Fetch(context.Background(), &Request{URL: "sftp://data.example.org/f", Retries: 1}, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrMissingCredentials)
}

func TestIsAuthError(t *testing.T) {
	assert.False(t, isAuthError(nil))
	assert.False(t, isAuthError(errors.New("connection refused")))
	assert.True(t, isAuthError(errors.New("ssh: handshake failed: ssh: unable to authenticate")))
}

func TestSFTPFetchFailureKeepsExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "entry.txt")
	require.NoError(t, os.WriteFile(dest, []byte("previous good copy"), 0o600))

	tr := NewSFTPTransport(credentials.Static{
		"127.0.0.1": {Username: "u", Password: "p"},
	})
	// Port 1 is never listening, so every attempt fails at dial time.
	_, err := tr.Fetch(context.Background(), &Request{
		URL:            "sftp://127.0.0.1:1/pub/entry.txt",
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
