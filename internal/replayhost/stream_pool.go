package replayhost

import (
	"context"
	"sync"
)

// StreamPool bounds the number of concurrent Driver.Run invocations to a
// fixed size. Every call still launches its own host process through
// Driver.Run; no host process is kept alive or reused between calls. The
// stdout text it returns for identical (methodIndex, opts) is bit-identical
// to the one-shot path (§4.2), since it delegates to the same Driver.Run
// per call rather than speaking a private framing protocol.
type StreamPool struct {
	driver *Driver
	sem    chan struct{}
}

// NewStreamPool returns a pool that allows at most size concurrent
// invocations through driver.
func NewStreamPool(driver *Driver, size int) *StreamPool {
	if size < 1 {
		size = 1
	}
	return &StreamPool{driver: driver, sem: make(chan struct{}, size)}
}

// Run acquires a pool slot and invokes the host, blocking until a slot is
// free or ctx is cancelled.
func (p *StreamPool) Run(ctx context.Context, methodIndex *int, opts Options) (string, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-p.sem }()

	return p.driver.Run(ctx, methodIndex, opts)
}

// RunMany invokes Run for every request concurrently, bounded by the pool's
// size, and returns results in the same order as requests.
func (p *StreamPool) RunMany(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))

	var wg sync.WaitGroup
	wg.Add(len(requests))
	for i, req := range requests {
		go func(i int, req Request) {
			defer wg.Done()
			stdout, err := p.Run(ctx, req.MethodIndex, req.Options)
			results[i] = Result{Stdout: stdout, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}

// Request pairs a method selector with its tuning options for RunMany.
type Request struct {
	MethodIndex *int
	Options     Options
}

// Result is one RunMany outcome.
type Result struct {
	Stdout string
	Err    error
}
