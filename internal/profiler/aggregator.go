package profiler

import (
	"sort"
	"sync"
)

// Aggregator accumulates invocation counts and exclusive cycles per region
// name. One mutex covers the whole map; it is the only structure shared
// between threads of a session.
type Aggregator struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{entries: make(map[string]*Entry)}
}

// Merge records one completed invocation of name.
func (a *Aggregator) Merge(name string, cycles uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[name]; ok {
		e.Count++
		e.Cycles += cycles
		return
	}
	a.entries[name] = &Entry{Name: name, Count: 1, Cycles: cycles}
}

// Lookup returns the entry for name.
func (a *Aggregator) Lookup(name string) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of distinct region names seen.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Snapshot returns a copy of every entry, ordered by name.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.Lock()
	out := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, *e)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
