// Package resource loads server data for one page render and reshapes it into
// view models. A Resource owns private state; fetches for the same principal
// and key may be shared through a Cache.
package resource

import (
	"context"
	"sync"

	"github.com/garyjia/payment-portal/internal/gateway"
)

// Fetcher performs one fetch. It returns ok=false after surfacing the reason
// on n.
type Fetcher[T any] func(ctx context.Context, n gateway.Notifier) (T, bool)

// State is a snapshot of a Resource
type State[T any] struct {
	Data    T
	Loading bool
	Error   string
}

// Failed returns true if the last load did not produce data
func (s State[T]) Failed() bool {
	return s.Error != ""
}

// Resource holds the result of a fetcher. Each Load takes a generation
// number and only the most recently issued Load may publish its result.
type Resource[T any] struct {
	name     string
	fetch    Fetcher[T]
	notifier gateway.Notifier

	lifetime context.Context
	cancel   context.CancelFunc

	mu    sync.Mutex
	gen   uint64
	state State[T]
}

// New creates a resource bound to parent. Close, or cancellation of parent,
// aborts every outstanding fetch.
func New[T any](parent context.Context, name string, fetch Fetcher[T], n gateway.Notifier) *Resource[T] {
	lifetime, cancel := context.WithCancel(parent)
	return &Resource[T]{
		name:     name,
		fetch:    fetch,
		notifier: n,
		lifetime: lifetime,
		cancel:   cancel,
	}
}

// Load runs the fetcher and returns the state it leaves behind. It is used
// both on first render and to refetch.
func (r *Resource[T]) Load(ctx context.Context) State[T] {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state.Loading = true
	r.state.Error = ""
	r.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.lifetime, cancel)
	defer stop()

	rec := &recorder{next: r.notifier}
	data, ok := r.fetch(fetchCtx, rec)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		// A newer load was issued; it owns the state now.
		return r.state
	}

	r.state.Loading = false
	if ok {
		r.state.Data = data
		r.state.Error = ""
		return r.state
	}

	var zero T
	r.state.Data = zero
	r.state.Error = rec.message(r.name)
	return r.state
}

// Snapshot returns the current state
func (r *Resource[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels outstanding fetches. A closed resource keeps its last state.
func (r *Resource[T]) Close() {
	r.cancel()
}

// recorder forwards notices and keeps the last error message for the state
type recorder struct {
	next gateway.Notifier

	mu      sync.Mutex
	lastErr string
}

func (r *recorder) Notify(n gateway.Notice) {
	if n.IsError() && n.Message != "" {
		r.mu.Lock()
		r.lastErr = n.Message
		r.mu.Unlock()
	}
	if r.next != nil {
		r.next.Notify(n)
	}
}

func (r *recorder) message(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != "" {
		return r.lastErr
	}
	return "Failed to load " + name
}
