package notify

import "sync"

// Entry is one registered observer as seen in a registry snapshot.
type Entry struct {
	ID       int64
	Kind     TransportKind
	Observer Observer
}

// Registry owns the set of live observers. Nothing else may add or remove
// entries; transports register on connect and the fan-out unregisters dead
// observers. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	nextID  int64
	order   []int64
	entries map[int64]Entry
}

// NewRegistry constructs an empty observer registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]Entry)}
}

// Register adds an observer and returns its process-local id.
func (reg *Registry) Register(kind TransportKind, obs Observer) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.nextID++
	id := reg.nextID
	reg.entries[id] = Entry{ID: id, Kind: kind, Observer: obs}
	reg.order = append(reg.order, id)

	return id
}

// Unregister removes an observer by id. Unknown ids are ignored: an
// observer removed mid-fanout may be unregistered twice (once by its
// connection handler, once by the fan-out) and neither call should care.
func (reg *Registry) Unregister(id int64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.entries[id]; !ok {
		return
	}
	delete(reg.entries, id)

	for i, v := range reg.order {
		if v == id {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns the current observers in registration order. The slice
// is a copy: registry mutations after the snapshot do not affect a fan-out
// already iterating it.
func (reg *Registry) Snapshot() []Entry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]Entry, 0, len(reg.order))
	for _, id := range reg.order {
		if e, ok := reg.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of registered observers.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.entries)
}
