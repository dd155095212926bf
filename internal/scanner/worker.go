package scanner

import (
	"context"
	"sync"
)

// WorkerConfig holds options for the worker pool.
type WorkerConfig struct {
	Threads   int
	Throttler *Throttler
	Pauser    *Pauser // nil = no pause support
}

// RunWorkerPool fans candidate parameter names out across workers and returns
// a channel of probe results. The channel is closed when every name has been
// processed or the context is cancelled. Transport errors are delivered as
// results with Err set; they never terminate a worker.
func RunWorkerPool(
	ctx context.Context,
	req *Requester,
	names []string,
	cfg WorkerConfig,
) <-chan ProbeResult {
	threads := cfg.Threads
	namesCh := make(chan string, threads*2)
	resultsCh := make(chan ProbeResult, threads*2)

	var wg sync.WaitGroup

	// Producer: feed candidate names into the channel. Closing it is the
	// termination signal for all workers.
	go func() {
		defer close(namesCh)
		for _, name := range names {
			select {
			case namesCh <- name:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Workers: consume names, produce results.
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range namesCh {
				if cfg.Pauser != nil {
					cfg.Pauser.Wait()
				}

				if err := cfg.Throttler.Wait(ctx); err != nil {
					return
				}

				resp, err := req.Probe(ctx, name)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					cfg.Throttler.RecordError()
					resultsCh <- ProbeResult{Param: name, Err: err}
					continue
				}

				cfg.Throttler.RecordStatus(resp.StatusCode)

				resultsCh <- ProbeResult{
					Param:      name,
					StatusCode: resp.StatusCode,
					Length:     resp.Length,
					Body:       resp.Body,
					Duration:   resp.Duration,
				}
			}
		}()
	}

	// Closer: when all workers finish, close the results channel.
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	return resultsCh
}
