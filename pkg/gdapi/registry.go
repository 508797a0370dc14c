package gdapi

import (
	"sync"
)

// ClientRegistry is the process-wide table of live clients keyed by identity.
//
// Constructors register a client once its schema has loaded; Client.Close
// unregisters it. At most one client is kept per identity and the latest
// registration wins. Unregister only clears a slot that still points at the
// closing client, so closing a replaced client leaves its successor in place.
type ClientRegistry struct {
	mu      sync.Locker
	clients map[string]Client
}

// DefaultRegistry is used by gdclient.New and by Resource.Follow.
var DefaultRegistry = NewClientRegistry(nil)

// NewClientRegistry creates a registry guarded by lock, or by a fresh mutex
// when lock is nil.
func NewClientRegistry(lock sync.Locker) *ClientRegistry {
	if lock == nil {
		lock = &sync.Mutex{}
	}

	return &ClientRegistry{
		mu:      lock,
		clients: make(map[string]Client),
	}
}

// Register stores client under id, replacing any previous entry.
func (r *ClientRegistry) Register(id string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[id] = client
}

// Lookup returns the live client for id.
func (r *ClientRegistry) Lookup(id string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]

	return client, ok
}

// Unregister removes id if it currently maps to client.
func (r *ClientRegistry) Unregister(id string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[id]; ok && current == client {
		delete(r.clients, id)
	}
}

// Len returns the number of live entries.
func (r *ClientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}
