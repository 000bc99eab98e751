// Package arbiter serializes writers per index within a process.
//
// Each index name owns one writer token, a channel buffered to one. A
// writer sends into the channel to acquire and drains it to release, so at
// most one lease per name is ever outstanding. The number of tracked names
// is bounded; asking for a new name past the bound fails immediately.
//
// The arbiter only coordinates goroutines of one process. Cross-process
// exclusion is the engine's file lock.
package arbiter

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/ftsq/internal/errs"
)

const (
	// DefaultCapacity is the default number of index names tracked.
	DefaultCapacity = 64

	// DefaultTimeout is the default writer acquisition timeout.
	DefaultTimeout = 5 * time.Second
)

// Arbiter hands out per-index writer leases.
type Arbiter struct {
	capacity int
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics

	mu      sync.Mutex
	slots   map[string]chan struct{}
	holders map[string]string // name → lease id
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithCapacity bounds the number of index names tracked.
func WithCapacity(n int) Option {
	return func(a *Arbiter) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// WithTimeout sets the acquisition timeout used when AcquireWriter is
// called with a zero timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMetrics registers the arbiter's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(a *Arbiter) {
		a.metrics = newMetrics(reg)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Arbiter.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		capacity: DefaultCapacity,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		slots:    make(map[string]chan struct{}),
		holders:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = newMetrics(nil)
	}
	return a
}

var (
	defaultOnce sync.Once
	defaultArb  *Arbiter
)

// Default returns the process-wide arbiter.
func Default() *Arbiter {
	defaultOnce.Do(func() {
		defaultArb = New()
	})
	return defaultArb
}

// Lease is a held writer token. Release is idempotent.
type Lease struct {
	ID       string
	Name     string
	Acquired time.Time

	arbiter *Arbiter
	once    sync.Once
}

// Release returns the token.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.arbiter.release(l.Name, l.ID)
	})
}

// AcquireWriter blocks until the writer token of name is free, timeout
// elapses or ctx is done. A zero timeout uses the arbiter default.
func (a *Arbiter) AcquireWriter(ctx context.Context, name string, timeout time.Duration) (*Lease, error) {
	if timeout <= 0 {
		timeout = a.timeout
	}
	slot, err := a.slot(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	select {
	case slot <- struct{}{}:
	default:
		if err := a.wait(ctx, name, slot, timeout); err != nil {
			return nil, err
		}
	}
	waited := time.Since(start)

	lease := &Lease{ID: uuid.NewString(), Name: name, Acquired: time.Now(), arbiter: a}
	a.mu.Lock()
	a.holders[name] = lease.ID
	a.mu.Unlock()

	a.metrics.acquired(name, waited)
	a.logger.Debug("writer acquired", "index", name, "lease", lease.ID, "waited", waited)
	return lease, nil
}

func (a *Arbiter) wait(ctx context.Context, name string, slot chan struct{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		a.metrics.timedOut(name)
		a.logger.Warn("writer acquisition timed out", "index", name, "timeout", timeout)
		return errs.Connection(name, nil, "timed out after %s waiting for the writer of index %q", timeout, name)
	case <-ctx.Done():
		return errs.Connection(name, ctx.Err(), "cancelled while waiting for the writer of index %q", name)
	}
}

// slot returns the token channel of name, creating it within capacity.
func (a *Arbiter) slot(name string) (chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.slots[name]; ok {
		return s, nil
	}
	if len(a.slots) >= a.capacity {
		return nil, errs.Connection(name, nil, "arbiter capacity of %d indexes exhausted", a.capacity)
	}
	s := make(chan struct{}, 1)
	a.slots[name] = s
	return s, nil
}

func (a *Arbiter) release(name, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.holders[name] != id {
		return
	}
	delete(a.holders, name)
	<-a.slots[name]
	a.metrics.released(name)
	a.logger.Debug("writer released", "index", name, "lease", id)
}

// ReleaseWriter releases the token of name regardless of which lease holds
// it. Releasing a free token is a ConnectionError.
func (a *Arbiter) ReleaseWriter(name string) error {
	a.mu.Lock()
	id, ok := a.holders[name]
	a.mu.Unlock()
	if !ok {
		return errs.Connection(name, nil, "writer of index %q is not held", name)
	}
	a.release(name, id)
	return nil
}

// Forget stops tracking name, freeing its place within capacity. A held
// token is kept. Callers must ensure no other goroutine still uses name,
// as a later AcquireWriter starts from a fresh token.
func (a *Arbiter) Forget(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, held := a.holders[name]; held {
		return
	}
	delete(a.slots, name)
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Capacity int
	Tracked  int
	Held     []string
}

// Stats returns a snapshot of tracked and held names.
func (a *Arbiter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{Capacity: a.capacity, Tracked: len(a.slots)}
	for name := range a.holders {
		s.Held = append(s.Held, name)
	}
	sort.Strings(s.Held)
	return s
}
