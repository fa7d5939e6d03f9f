// Package deferred splits a request's data needs into a critical payload,
// awaited before any byte of the response is produced, and secondary fetches
// that resolve independently while the response streams. Each secondary key
// carries a three-state contract: pending until it settles, then resolved
// with a value or failed with an error. A failure is isolated to its key and
// never fails the parent request.
package deferred

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calicocommerce/storefront/internal/eventbus"
	"github.com/calicocommerce/storefront/internal/events"
)

// State is the rendering state of one secondary key.
type State string

const (
	Pending  State = "pending"
	Resolved State = "resolved"
	Failed   State = "failed"
)

// Fetch loads one secondary value. It runs on its own goroutine with the
// bundle's context and must return promptly once that context is cancelled.
type Fetch func(ctx context.Context) (any, error)

// Settlement is the terminal outcome of one secondary key.
type Settlement struct {
	Key   string
	State State // Resolved or Failed
	Value any
	Err   error
}

// Bundle owns one request's secondary fetches. It is request-scoped and not
// shared across requests. Register every key with Defer before consuming
// Settlements; fetches start immediately on registration.
type Bundle struct {
	ctx context.Context

	group errgroup.Group

	mu     sync.Mutex
	states map[string]State
	sealed bool

	out chan Settlement
}

// NewBundle creates a bundle bound to the request context. Cancelling ctx
// cancels every in-flight fetch and discards late results, which is the
// stale-result guard for superseded navigations.
func NewBundle(ctx context.Context) *Bundle {
	return &Bundle{
		ctx:    ctx,
		states: make(map[string]State),
		out:    make(chan Settlement),
	}
}

// Defer registers a secondary key and starts its fetch. Keys are unique per
// bundle; registering after Settlements has been called, or a duplicate key,
// panics; both are programming errors in request assembly.
func (b *Bundle) Defer(key string, fn Fetch) {
	b.mu.Lock()
	if b.sealed {
		b.mu.Unlock()
		panic("deferred: Defer after Settlements on key " + key)
	}
	if _, dup := b.states[key]; dup {
		b.mu.Unlock()
		panic("deferred: duplicate key " + key)
	}
	b.states[key] = Pending
	b.mu.Unlock()

	b.group.Go(func() error {
		start := time.Now()
		value, err := b.run(fn)
		s := Settlement{Key: key, State: Resolved, Value: value}
		if err != nil {
			s = Settlement{Key: key, State: Failed, Err: err}
		}

		b.mu.Lock()
		b.states[key] = s.State
		b.mu.Unlock()

		eventbus.Publish(b.ctx, events.DeferredSettled{
			Key:      key,
			Failed:   err != nil,
			Err:      err,
			Duration: time.Since(start),
		})

		select {
		case b.out <- s:
		case <-b.ctx.Done():
			// Consumer is gone; the result is stale and dropped.
		}
		return nil
	})
}

// run invokes fn, converting a panic into a per-key failure so one bad
// secondary fetch cannot take down the response.
func (b *Bundle) run(fn Fetch) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("deferred fetch panicked: %v", r)
		}
	}()
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	return fn(b.ctx)
}

// Keys returns the registered keys in lexicographic order, for the response
// head's pending-key list.
func (b *Bundle) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.states))
	for k := range b.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StateOf returns the current state of a key.
func (b *Bundle) StateOf(key string) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[key]
	return s, ok
}

// Settlements seals the bundle and returns the channel on which each key's
// terminal outcome arrives, in whatever order the fetches finish. The channel
// closes once every key has settled. Settlements may be called once.
func (b *Bundle) Settlements() <-chan Settlement {
	b.mu.Lock()
	if b.sealed {
		b.mu.Unlock()
		panic("deferred: Settlements called twice")
	}
	b.sealed = true
	b.mu.Unlock()

	go func() {
		_ = b.group.Wait()
		close(b.out)
	}()
	return b.out
}
