package registry

import (
	"sync"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

// Agent is the registry's view of a device agent. The concrete type lives
// in internal/agent; the indirection keeps ingress and registry free of an
// import cycle.
type Agent interface {
	// Deliver enqueues a one-way event message. It reports false when the
	// agent is no longer accepting messages.
	Deliver(msg any) bool
	// UPnPSessionID returns the agent's current GENA subscription id, or ""
	// when not subscribed.
	UPnPSessionID() string
}

// Entry is one registered device.
type Entry struct {
	DeviceID string
	Host     string
	Agent    Agent
}

// Registry is the process-wide unique index of device agents, keyed by
// device id. At most one agent may hold a key.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register claims deviceID for an agent. A second registration for the
// same key fails with ErrAlreadyRegistered.
func (r *Registry) Register(deviceID, host string, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[deviceID]; exists {
		return apperrors.ErrAlreadyRegistered
	}
	r.entries[deviceID] = Entry{DeviceID: deviceID, Host: host, Agent: a}
	return nil
}

// Unregister releases deviceID, but only when it is still held by the
// given agent. A replacement agent's entry is never clobbered by a late
// cleanup of its predecessor.
func (r *Registry) Unregister(deviceID string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[deviceID]; ok && entry.Agent == a {
		delete(r.entries, deviceID)
	}
}

// Lookup returns the entry for deviceID.
func (r *Registry) Lookup(deviceID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[deviceID]
	return entry, ok
}

// KeysOf returns the device ids registered by an agent.
func (r *Registry) KeysOf(a Agent) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for id, entry := range r.entries {
		if entry.Agent == a {
			keys = append(keys, id)
		}
	}
	return keys
}

// List returns a snapshot of all entries.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}

// FindBySession scans for the agent whose GENA subscription id matches.
func (r *Registry) FindBySession(sid string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.Agent.UPnPSessionID() == sid {
			return entry, true
		}
	}
	return Entry{}, false
}
