package state

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the open views, one Store each.
type Registry struct {
	mu    sync.RWMutex
	views map[string]*Store
}

func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*Store)}
}

func (r *Registry) Open() (string, *Store) {
	id := uuid.NewString()
	store := NewStore()

	r.mu.Lock()
	r.views[id] = store
	r.mu.Unlock()

	return id, store
}

func (r *Registry) Get(id string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.views[id]
	return s, ok
}

func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// IDs returns the open view ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) CloseAll() {
	for _, id := range r.IDs() {
		r.Close(id)
	}
}
