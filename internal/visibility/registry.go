package visibility

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Source supplies the filters consulted by a Chain. Snapshot must return
// a slice that is not modified afterwards; callers must not modify it either.
type Source interface {
	Snapshot() []Filter
}

// Filters is a fixed Source.
type Filters []Filter

// Snapshot returns f.
func (f Filters) Snapshot() []Filter { return f }

// Registry is an ordered set of filters keyed by name. Registration order is
// evaluation order. Readers get lock-free, copy-on-write snapshots, so a
// Chain always evaluates a consistent view even while filters are being
// registered or removed.
type Registry struct {
	mu        sync.Mutex
	current   atomic.Pointer[[]Filter]
	listeners []func(name string)
}

// compile-time interface conformance check.
var _ Source = (*Registry)(nil)

// NewRegistry creates a registry holding filters in the given order.
// It panics on nil or duplicate filters; use Register to handle those as
// errors.
func NewRegistry(filters ...Filter) *Registry {
	r := &Registry{}
	empty := []Filter{}
	r.current.Store(&empty)

	for _, f := range filters {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}

	return r
}

// Register appends f to the registry.
func (r *Registry) Register(f Filter) error {
	if f == nil {
		return ErrNilFilter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.current.Load()
	for _, existing := range old {
		if existing.Name() == f.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateFilter, f.Name())
		}
	}

	next := make([]Filter, len(old), len(old)+1)
	copy(next, old)
	next = append(next, f)
	r.current.Store(&next)

	return nil
}

// Unregister removes the filter with the given name and notifies the
// OnUnregister listeners. It reports whether a filter was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()

	old := *r.current.Load()
	next := make([]Filter, 0, len(old))

	for _, f := range old {
		if f.Name() != name {
			next = append(next, f)
		}
	}

	removed := len(next) != len(old)
	if removed {
		r.current.Store(&next)
	}

	listeners := r.listeners
	r.mu.Unlock()

	if removed {
		for _, fn := range listeners {
			fn(name)
		}
	}

	return removed
}

// Replace swaps the registered filters for filters in one step. Nothing
// changes when filters holds a nil or duplicate entry. Listeners are notified
// only for names absent from filters, so a ledger keeps the entries of
// filters that survive the swap.
func (r *Registry) Replace(filters []Filter) error {
	next := make([]Filter, 0, len(filters))
	keep := make(map[string]bool, len(filters))

	for _, f := range filters {
		if f == nil {
			return ErrNilFilter
		}

		if keep[f.Name()] {
			return fmt.Errorf("%w: %q", ErrDuplicateFilter, f.Name())
		}

		keep[f.Name()] = true
		next = append(next, f)
	}

	r.mu.Lock()

	old := *r.current.Load()
	r.current.Store(&next)

	listeners := r.listeners
	r.mu.Unlock()

	for _, f := range old {
		if keep[f.Name()] {
			continue
		}

		for _, fn := range listeners {
			fn(f.Name())
		}
	}

	return nil
}

// OnUnregister registers fn to be called with the name of every filter
// removed from the registry. A Ledger uses this to drop its entry.
func (r *Registry) OnUnregister(fn func(name string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, fn)
}

// Snapshot returns the current filters in registration order.
func (r *Registry) Snapshot() []Filter {
	return *r.current.Load()
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	return len(*r.current.Load())
}

// Names returns the registered filter names in order.
func (r *Registry) Names() []string {
	filters := r.Snapshot()
	names := make([]string, len(filters))

	for i, f := range filters {
		names[i] = f.Name()
	}

	return names
}
