package queue

import (
	"context"
	"sync"
	"time"
)

// AsyncPublisher hands events to Next on a background goroutine so a slow or
// unreachable broker never delays the request that produced the event.
type AsyncPublisher struct {
	Next    Publisher
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewAsyncPublisher(next Publisher, timeout time.Duration) *AsyncPublisher {
	return &AsyncPublisher{Next: next, Timeout: timeout}
}

// Publish always returns nil; delivery errors are reported by Next.
func (p *AsyncPublisher) Publish(_ context.Context, ev ActivityEvent) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
		defer cancel()
		_ = p.Next.Publish(ctx, ev)
	}()
	return nil
}

// Wait blocks until in-flight publishes finish.
func (p *AsyncPublisher) Wait() { p.wg.Wait() }
