// Package registry stores tracked executions and evicts finished ones.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/timvw/pane-pilot/internal/model"
)

// entry guards one execution. Its mutex serializes updates to a single id
// while other ids proceed independently.
type entry struct {
	mu      sync.Mutex
	exec    model.Execution
	removed bool
}

// Registry maps execution ids to their current state.
type Registry struct {
	mu   sync.RWMutex
	data map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{data: make(map[string]*entry)}
}

// Insert stores e under e.ID, replacing any previous record with that id.
func (r *Registry) Insert(e model.Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[e.ID] = &entry{exec: e.Clone()}
}

// Get returns a copy of the execution with the given id.
func (r *Registry) Get(id string) (model.Execution, bool) {
	en := r.lookup(id)
	if en == nil {
		return model.Execution{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.removed {
		return model.Execution{}, false
	}
	return en.exec.Clone(), true
}

// Update runs fn on the stored execution while holding its lock and returns
// a copy of the result. fn may block; only callers of the same id wait.
func (r *Registry) Update(id string, fn func(e *model.Execution)) (model.Execution, bool) {
	en := r.lookup(id)
	if en == nil {
		return model.Execution{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.removed {
		return model.Execution{}, false
	}
	fn(&en.exec)
	return en.exec.Clone(), true
}

// IDs returns all execution ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// List returns copies of all executions, oldest first.
func (r *Registry) List() []model.Execution {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.data))
	for _, en := range r.data {
		entries = append(entries, en)
	}
	r.mu.RUnlock()

	result := make([]model.Execution, 0, len(entries))
	for _, en := range entries {
		en.mu.Lock()
		if !en.removed {
			result = append(result, en.exec.Clone())
		}
		en.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

// Len returns the number of stored executions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Sweep removes terminal executions that started more than maxAge before
// now and returns how many were removed. Pending executions are never
// removed, however old. A record busy in Update is skipped until the next
// sweep.
func (r *Registry) Sweep(now time.Time, maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, en := range r.data {
		if !en.mu.TryLock() {
			continue
		}
		if en.exec.Status.Terminal() && now.Sub(en.exec.StartedAt) > maxAge {
			en.removed = true
			delete(r.data, id)
			removed++
		}
		en.mu.Unlock()
	}
	return removed
}

func (r *Registry) lookup(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[id]
}
