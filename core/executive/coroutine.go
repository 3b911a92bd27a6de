package executive

import "context"

// ioRequest is one pending asynchronous storage operation: run performs the
// actual backend call and reports its result on done.
type ioRequest struct {
	run  func() (string, error)
	done chan ioResult
}

type ioResult struct {
	value string
	err   error
}

// CoroutineIO is the synchronous façade over the async storage API used
// inside precompiled code (spec.md §4.7). It is re-architected per the §9
// design note as message passing rather than a coroutine holding a
// back-reference to its executive: the caller and the worker communicate
// only through the request/done channels below, so there is no ownership
// cycle between a frame and its host.
//
// A caller on the frame's own goroutine calls Do, which either observes
// the result immediately (the common case, since this simulation's
// backend resolves synchronously) or blocks on the done channel until the
// worker goroutine delivers it — modeling "suspend the coroutine, resume
// when the callback arrives" without stackful coroutines.
type CoroutineIO struct {
	requests chan ioRequest
	done     chan struct{}
}

// NewCoroutineIO starts the dedicated worker goroutine that drains
// requests and runs them one at a time, decoupling the frame's logical
// thread of control from whatever thread a backend callback arrives on.
func NewCoroutineIO() *CoroutineIO {
	c := &CoroutineIO{
		requests: make(chan ioRequest),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *CoroutineIO) loop() {
	for req := range c.requests {
		value, err := req.run()
		req.done <- ioResult{value: value, err: err}
	}
	close(c.done)
}

// Do issues run as an async storage request and blocks the calling frame
// until its result is available, or ctx is done first.
func (c *CoroutineIO) Do(ctx context.Context, run func() (string, error)) (string, error) {
	req := ioRequest{run: run, done: make(chan ioResult, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts down the worker goroutine. Safe to call once all Do calls
// have returned.
func (c *CoroutineIO) Close() {
	close(c.requests)
	<-c.done
}
