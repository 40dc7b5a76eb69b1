// Package realtime relays live frames between connected clients over
// WebSockets: personal notification channels, event chat rooms and event
// watchers.
package realtime

import (
	"sort"
	"sync"
	"time"
)

// Registry tracks who is connected and which rooms each connection joined.
// One Registry lives per process; it is created in main and cleared at
// shutdown.
type Registry struct {
	mu      sync.RWMutex
	users   map[string]*Client // user id -> newest connection
	clients map[*Client]string // connection -> user id
	rooms   map[string]map[*Client]struct{}
	started time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		users:   make(map[string]*Client),
		clients: make(map[*Client]string),
		rooms:   make(map[string]map[*Client]struct{}),
		started: time.Now(),
	}
}

// Register maps c's user to c, replacing any older connection of that user.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[c.UserID()] = c
	r.clients[c] = c.UserID()
}

// Unregister drops c and its room memberships. It reports whether c was
// still the user's current connection; a stale connection leaves the newer
// mapping in place.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.clients[c]
	if !ok {
		return false
	}
	delete(r.clients, c)
	for name, members := range r.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, name)
		}
	}
	if r.users[userID] != c {
		return false
	}
	delete(r.users, userID)
	return true
}

func (r *Registry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (r *Registry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

func (r *Registry) InRoom(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][c]
	return ok
}

// Members returns a snapshot of the connections in room.
func (r *Registry) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) User(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.users[userID]
	return c, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.User(userID)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// UserIDs lists connected users in stable order.
func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Uptime() time.Duration {
	return time.Since(r.started)
}

// Clear closes every connection and empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.users = make(map[string]*Client)
	r.clients = make(map[*Client]string)
	r.rooms = make(map[string]map[*Client]struct{})
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
