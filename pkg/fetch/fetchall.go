package fetch

import (
	"context"
	"runtime"
	"sync"
)

// BatchOptions configures a FetchAll run.
type BatchOptions struct {
	// Concurrency bounds the number of parallel fetches. Zero picks half the
	// CPU count, at least 2.
	Concurrency int
}

// BatchResult pairs one request with its outcome. Err is set when the fetch
// failed; Result is always non-nil.
type BatchResult struct {
	Request *Request
	Result  *Result
	Err     error
}

// FetchAll fetches every request concurrently and returns the outcomes in
// request order. Identical cache keys are collapsed onto a single download by
// the client's in-flight dedup, so listing the same resource twice costs one
// transfer. Individual failures do not abort the batch.
func (c *Client) FetchAll(ctx context.Context, requests []*Request, opts BatchOptions) []BatchResult {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU() / 2
		if concurrency < 2 {
			concurrency = 2
		}
	}
	if concurrency > len(requests) {
		concurrency = len(requests)
	}

	results := make([]BatchResult, len(requests))
	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				res, err := c.Fetch(ctx, requests[idx])
				results[idx] = BatchResult{
					Request: requests[idx],
					Result:  res,
					Err:     err,
				}
			}
		}()
	}

	for idx := range requests {
		select {
		case tasks <- idx:
		case <-ctx.Done():
			for i := idx; i < len(requests); i++ {
				results[i] = BatchResult{
					Request: requests[i],
					Result:  broken(0, ""),
					Err:     ctx.Err(),
				}
			}
			close(tasks)
			wg.Wait()
			return results
		}
	}
	close(tasks)
	wg.Wait()
	return results
}
