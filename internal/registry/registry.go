// Package registry implements ConnRegistry: the vfd → outbound-sender
// mapping a hub uses to address a live connection by id. A registry is
// owned exclusively by one hub and must only be mutated from that hub's
// event loop goroutine — it holds no lock because nothing else ever
// touches it concurrently.
package registry

import "github.com/nodefleet/hubcore/internal/wire"

// Registry maps vfd (or, for the RPC-client hub, host_id) to the channel a
// writer goroutine drains for that connection.
type Registry struct {
	entries map[wire.Session]chan<- wire.Envelope
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[wire.Session]chan<- wire.Envelope)}
}

// Insert registers sender under key, overwriting any prior entry.
func (r *Registry) Insert(key wire.Session, sender chan<- wire.Envelope) {
	r.entries[key] = sender
}

// Remove evicts key, if present.
func (r *Registry) Remove(key wire.Session) {
	delete(r.entries, key)
}

// Lookup returns the sender registered for key, if any.
func (r *Registry) Lookup(key wire.Session) (chan<- wire.Envelope, bool) {
	s, ok := r.entries[key]
	return s, ok
}

// Len reports the number of live entries.
func (r *Registry) Len() int { return len(r.entries) }

// Send performs the non-blocking try-send backpressure policy
// against the registered entry for key. It reports whether an entry existed
// and, when it did, whether the send succeeded (false means the per-
// connection channel was full and the envelope was dropped).
func (r *Registry) Send(key wire.Session, env wire.Envelope) (found, sent bool) {
	ch, ok := r.entries[key]
	if !ok {
		return false, false
	}
	select {
	case ch <- env:
		return true, true
	default:
		return true, false
	}
}
