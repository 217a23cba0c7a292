// Package notify delivers change events to observers after every write the
// record router performs.
package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Op names the write that caused a change.
type Op string

// Change operations.
const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one change event. Locator is the request locator as a string;
// for inserts it is the collection the row was written to.
type Change struct {
	ID      string    `json:"id"`
	Op      Op        `json:"op"`
	Locator string    `json:"locator"`
	At      time.Time `json:"at"`
}

// Observer receives change events. OnChange runs synchronously on the
// writer's goroutine and must not block.
type Observer interface {
	OnChange(ctx context.Context, change Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change)

// OnChange calls f.
func (f ObserverFunc) OnChange(ctx context.Context, change Change) {
	f(ctx, change)
}

// IDGenerator produces change ids.
type IDGenerator interface {
	Generate() string
}

// Bus fans change events out to subscribed observers in subscription order.
// A Bus is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	observers map[int]Observer
	next      int

	ids IDGenerator
	now func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithIDGenerator sets the change id source. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Bus) { b.ids = g }
}

// WithClock sets the timestamp source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// NewBus creates a bus with no observers.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		observers: make(map[int]Observer),
		ids:       UUIDv7Generator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers o and returns a function that removes it.
func (b *Bus) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.observers[id] = o

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.observers, id)
		})
	}
}

// Len returns the number of subscribed observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Publish stamps a change for locator and delivers it to every observer.
// The delivered change is returned.
func (b *Bus) Publish(ctx context.Context, op Op, locator string) Change {
	change := Change{
		ID:      b.ids.Generate(),
		Op:      op,
		Locator: locator,
		At:      b.now().UTC(),
	}

	for _, o := range b.snapshot() {
		o.OnChange(ctx, change)
	}
	return change
}

// snapshot copies the observers in subscription order so delivery happens
// without holding the lock.
func (b *Bus) snapshot() []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]int, 0, len(b.observers))
	for k := range b.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Observer, len(keys))
	for i, k := range keys {
		out[i] = b.observers[k]
	}
	return out
}

// Recorder is an Observer that keeps every change it sees.
type Recorder struct {
	mu      sync.Mutex
	changes []Change
}

// OnChange records change.
func (r *Recorder) OnChange(_ context.Context, change Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

// Changes returns a copy of the recorded changes.
func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// Reset drops every recorded change.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
}
