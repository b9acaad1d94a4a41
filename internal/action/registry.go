package action

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps action kinds to constructors of their empty payloads.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind]func() Action
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Kind]func() Action)}
}

// DefaultRegistry knows every built-in action kind.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(KindNoop, func() Action { return &Noop{} })
	r.Register(KindPlaySound, func() Action { return &PlaySound{} })
	r.Register(KindGroupControl, func() Action { return &GroupControl{} })
	r.Register(KindBusControl, func() Action { return &BusControl{} })
	r.Register(KindPlaylistControl, func() Action { return &PlaylistControl{} })
	r.Register(KindGlobalControl, func() Action { return &GlobalControl{} })
	r.Register(KindMixerSnapshot, func() Action { return &MixerSnapshot{} })
	r.Register(KindPersistentSetting, func() Action { return &PersistentSetting{} })
	r.Register(KindCustomEvent, func() Action { return &FireCustomEvent{} })
	return r
}()

// Register adds a constructor. Panics on duplicate kind to surface misconfiguration early.
func (r *Registry) Register(k Kind, fn func() Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k]; exists {
		panic(fmt.Sprintf("action registry: duplicate kind %q", k))
	}
	r.kinds[k] = fn
}

// New returns an empty payload for the given kind.
func (r *Registry) New(k Kind) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.kinds[k]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", k)
	}
	return fn(), nil
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
