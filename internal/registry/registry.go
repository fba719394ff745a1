package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the ceiling on concurrently live clients.
const DefaultCapacity = 30

// Registry owns the set of connected clients. It allocates identities,
// enforces the capacity ceiling, and holds the pairing table. It is the only
// place clients are created or destroyed.
//
// Clients live in a slot slice; removal leaves a nil hole that a later
// insertion may reuse. Lookups skip holes. Pairing is a bidirectional id
// table rather than cross-references between Client values, so an evicted
// client can never leave a dangling partner link.
type Registry struct {
	mu       sync.RWMutex
	clients  []*Client
	pairs    map[int64]int64  // id -> partner id, symmetric
	sessions map[int64]string // id -> pair session, same value on both sides
	nextID   int64
	live     int
	capacity int

	// onCreate runs after each successful client creation, with the lock
	// released so it may call back into the registry. Used to lazily start
	// the reaper.
	onCreate func()

	log *zap.Logger
}

// New creates an empty registry. A non-positive capacity falls back to
// DefaultCapacity.
func New(capacity int, log *zap.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		pairs:    make(map[int64]int64),
		sessions: make(map[int64]string),
		nextID:   1,
		capacity: capacity,
		log:      log,
	}
}

// OnCreate registers a hook invoked after every successful client creation.
func (r *Registry) OnCreate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCreate = fn
}

// Resolve maps a claimed id to a live client. A known id refreshes the
// client's attributes and returns it. A negative (unresolved) id allocates a
// fresh client when a slot is free. An unknown non-negative id, or an
// exhausted registry, resolves to nil; callers report that as an invalid
// client. The capacity check and insertion are a single critical section, so
// concurrent allocations can never exceed the ceiling.
func (r *Registry) Resolve(id int64, name string, host bool, lives, score int) *Client {
	r.mu.Lock()

	if id >= 0 {
		c := r.findLocked(id)
		r.mu.Unlock()
		if c == nil || c.Closing() {
			return nil
		}
		c.Touch(name, host, lives, score)
		return c
	}

	if r.live >= r.capacity {
		r.mu.Unlock()
		r.log.Warn("client registry at capacity", zap.Int("capacity", r.capacity))
		return nil
	}

	c := newClient(r.nextID, name, host, lives, score)
	r.nextID++
	r.insertLocked(c)
	r.live++
	hook := r.onCreate
	r.mu.Unlock()

	r.log.Info("client registered",
		zap.Int64("client_id", c.ID()),
		zap.String("name", name),
		zap.Bool("host", host))

	if hook != nil {
		hook()
	}
	return c
}

// FindByID returns the live client with the given id, or nil.
func (r *Registry) FindByID(id int64) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(id)
}

// Remove marks the client closing, excises it from its slot, and clears both
// sides of any pairing so the surviving partner is not left dangling.
// Returns false when the id was not present.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.clients {
		if c != nil && c.id == id {
			c.markClosing()
			r.clients[i] = nil
			r.live--
			r.unpairLocked(id)
			r.log.Info("client removed", zap.Int64("client_id", id))
			return true
		}
	}
	return false
}

// Pair establishes a symmetric partnership between two live clients under a
// single critical section, tagging both sides with the given session id.
// Exactly one of two racing joins against the same open client can succeed.
func (r *Registry) Pair(a, b int64, session string) error {
	if a == b {
		return ErrSelfPair
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(a) == nil || r.findLocked(b) == nil {
		return ErrClientNotFound
	}
	if _, paired := r.pairs[a]; paired {
		return ErrAlreadyPaired
	}
	if _, paired := r.pairs[b]; paired {
		return ErrAlreadyPaired
	}

	r.pairs[a] = b
	r.pairs[b] = a
	r.sessions[a] = session
	r.sessions[b] = session
	return nil
}

// Partner returns the live client paired with id, or nil.
func (r *Registry) Partner(id int64) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pid, ok := r.pairs[id]
	if !ok {
		return nil
	}
	return r.findLocked(pid)
}

// PairSession returns the session id assigned when the client was paired, or
// an empty string for an unpaired client.
func (r *Registry) PairSession(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// OpenHosts returns every live, unpaired client that declared itself a host,
// in slot order. These are the joinable open connections.
func (r *Registry) OpenHosts() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []*Client
	for _, c := range r.clients {
		if c == nil || !c.Host() {
			continue
		}
		if _, paired := r.pairs[c.id]; paired {
			continue
		}
		open = append(open, c)
	}
	return open
}

// Live returns the number of live clients.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// EvictIdle removes every client whose last check-in is older than the
// timeout, unpairing partners as it goes. Returns the evicted ids.
func (r *Registry) EvictIdle(timeout time.Duration) []int64 {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []int64
	for i, c := range r.clients {
		if c == nil {
			continue
		}
		if now.Sub(c.LastSeen()) > timeout {
			c.markClosing()
			r.clients[i] = nil
			r.live--
			r.unpairLocked(c.id)
			evicted = append(evicted, c.id)
		}
	}
	return evicted
}

// Reset drops every client and pairing. Identity allocation stays monotonic:
// ids issued before a reset are never reissued after it.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c != nil {
			c.markClosing()
		}
	}
	r.clients = nil
	r.pairs = make(map[int64]int64)
	r.sessions = make(map[int64]string)
	r.live = 0
}

func (r *Registry) findLocked(id int64) *Client {
	for _, c := range r.clients {
		if c != nil && c.id == id {
			return c
		}
	}
	return nil
}

func (r *Registry) insertLocked(c *Client) {
	for i, slot := range r.clients {
		if slot == nil {
			r.clients[i] = c
			return
		}
	}
	r.clients = append(r.clients, c)
}

func (r *Registry) unpairLocked(id int64) {
	if pid, ok := r.pairs[id]; ok {
		delete(r.pairs, pid)
		delete(r.sessions, pid)
	}
	delete(r.pairs, id)
	delete(r.sessions, id)
}
