// Package faceid assigns face identifiers under a never-reuse policy: an ID
// stays with a face while it is tracked, is retired when the face leaves the
// picture, and a face that re-enters receives a fresh ID.
package faceid

import (
	"sync"
	"sync/atomic"
)

// Allocator hands out strictly increasing identifiers. The zero value starts at 1.
type Allocator struct {
	last atomic.Int64
}

// NewAllocator returns an allocator whose first ID is start+1, for resuming
// after IDs persisted by an earlier run.
func NewAllocator(start int64) *Allocator {
	a := &Allocator{}
	a.last.Store(start)
	return a
}

// Next returns an ID that has never been returned before by a.
func (a *Allocator) Next() int64 { return a.last.Add(1) }

// Last returns the most recently issued ID, or the start value.
func (a *Allocator) Last() int64 { return a.last.Load() }

// Registry maps producer track keys to face IDs.
type Registry struct {
	mu     sync.Mutex
	alloc  *Allocator
	active map[string]int64
}

// NewRegistry creates a registry drawing IDs from alloc. A nil alloc uses a fresh allocator.
func NewRegistry(alloc *Allocator) *Registry {
	if alloc == nil {
		alloc = &Allocator{}
	}
	return &Registry{alloc: alloc, active: make(map[string]int64)}
}

// Assign returns the ID of the tracked face key, allocating one when the face is new.
func (r *Registry) Assign(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.active[key]; ok {
		return id
	}
	id := r.alloc.Next()
	r.active[key] = id
	return id
}

// Fresh returns a new ID without binding it to a key, for faces that are not tracked.
func (r *Registry) Fresh() int64 { return r.alloc.Next() }

// Lookup returns the ID currently bound to key.
func (r *Registry) Lookup(key string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[key]
	return id, ok
}

// Retire forgets key. Its ID is never handed out again.
func (r *Registry) Retire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[key]; !ok {
		return false
	}
	delete(r.active, key)
	return true
}

// Sweep retires every key not present in seen and returns how many were retired.
func (r *Registry) Sweep(seen map[string]struct{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.active {
		if _, ok := seen[key]; !ok {
			delete(r.active, key)
			n++
		}
	}
	return n
}

// Active returns the number of tracked faces.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
