package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/queue"
)

// Events records published activity events.
type Events struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (e *Events) Publish(_ context.Context, ev queue.ActivityEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// Types returns the recorded event types in publish order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

// Revocations records per-user revocation watermarks.
type Revocations struct {
	mu sync.Mutex
	m  map[uint64]time.Time
}

func (r *Revocations) RevokeUser(_ context.Context, userID uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = map[uint64]time.Time{}
	}
	r.m[userID] = at
	return nil
}

// Revoked reports whether userID has a watermark.
func (r *Revocations) Revoked(userID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[userID]
	return ok
}

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Logger returns a logrus logger that discards output.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
