package fleet

import (
	"sort"
	"sync"
)

// Registry is the authoritative current-state table of tracked vehicles.
// Reads run concurrently; writes arrive only through the Tracker, which
// serializes the full mutation sequence around them.
type Registry struct {
	mu       sync.RWMutex
	vehicles map[string]Vehicle
}

func NewRegistry() *Registry {
	return &Registry{vehicles: map[string]Vehicle{}}
}

// Load replaces the registry content wholesale. Used once at startup to warm
// the registry from the persistent store.
func (r *Registry) Load(vehicles []Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles = make(map[string]Vehicle, len(vehicles))
	for _, v := range vehicles {
		r.vehicles[v.ID] = v
	}
}

func (r *Registry) Get(id string) (Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	return v, ok
}

// List returns all vehicles sorted by id, so repeated listings are stable.
func (r *Registry) List() []Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Upsert(v Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID] = v
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[id]; !ok {
		return false
	}
	delete(r.vehicles, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vehicles)
}
