package fetch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/biofetch/pkg/fetch"
)

func TestFetchAll(t *testing.T) {
	server, calls := newTestServer(t, map[string][]byte{
		"/a.txt": []byte("alpha"),
		"/b.txt": []byte("beta"),
	})
	client := newTestClient(t, fetch.Options{})

	requests := []*fetch.Request{
		{URL: server.URL + "/a.txt"},
		{URL: server.URL + "/b.txt"},
		{URL: server.URL + "/a.txt"}, // duplicate
	}

	results := client.FetchAll(context.Background(), requests, fetch.BatchOptions{Concurrency: 2})
	require.Len(t, results, 3)

	for i, br := range results {
		require.NoError(t, br.Err, "request %d", i)
		require.NotNil(t, br.Result)
		require.NoError(t, br.Result.Close())
		assert.Same(t, requests[i], br.Request)
	}

	assert.Equal(t, "alpha", results[0].Result.Text())
	assert.Equal(t, "beta", results[1].Result.Text())
	assert.Equal(t, "alpha", results[2].Result.Text())

	// The duplicate either shared the in-flight download or hit the cache.
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAllPartialFailure(t *testing.T) {
	server, _ := newTestServer(t, map[string][]byte{"/good.txt": []byte("ok")})
	client := newTestClient(t, fetch.Options{})

	results := client.FetchAll(context.Background(), []*fetch.Request{
		{URL: server.URL + "/good.txt"},
		{URL: server.URL + "/missing.txt", Retries: 1, Silent: true},
	}, fetch.BatchOptions{})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	require.NoError(t, results[0].Result.Close())
	assert.Error(t, results[1].Err)
	assert.True(t, results[1].Result.DownloadFailed)
}

func TestFetchAllCanceledContext(t *testing.T) {
	client := newTestClient(t, fetch.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := client.FetchAll(ctx, []*fetch.Request{
		{URL: "https://example.org/a"},
		{URL: "https://example.org/b"},
	}, fetch.BatchOptions{Concurrency: 1})

	require.Len(t, results, 2)
	for _, br := range results {
		require.NotNil(t, br.Result)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	client := newTestClient(t, fetch.Options{})
	results := client.FetchAll(context.Background(), nil, fetch.BatchOptions{})
	assert.Empty(t, results)
}
