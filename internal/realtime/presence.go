package realtime

import "sync"

// Presence maps live connection ids to authenticated user ids. It is purely
// in-memory and rebuilt from scratch on process restart; clients re-join
// their rooms after reconnecting. A user with several tabs open holds
// several entries, so online state is reference counted.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]string // connection id -> user id
	users map[string]int    // user id -> live connection count
}

func NewPresence() *Presence {
	return &Presence{
		conns: make(map[string]string),
		users: make(map[string]int),
	}
}

// Add binds a connection to a user after the authenticate handshake.
// It returns true when this is the user's first live connection.
func (p *Presence) Add(connID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.conns[connID]; ok {
		// Re-authentication on the same connection
		if prev == userID {
			return false
		}
		p.dropLocked(connID, prev)
	}

	p.conns[connID] = userID
	p.users[userID]++
	return p.users[userID] == 1
}

// Remove unbinds a connection on disconnect. It returns the user id the
// connection belonged to and true when no other connection of that user
// remains. Unauthenticated connections return ("", false).
func (p *Presence) Remove(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.conns[connID]
	if !ok {
		return "", false
	}
	p.dropLocked(connID, userID)
	return userID, p.users[userID] == 0
}

func (p *Presence) dropLocked(connID, userID string) {
	delete(p.conns, connID)
	if p.users[userID] <= 1 {
		delete(p.users, userID)
	} else {
		p.users[userID]--
	}
}

// UserID resolves the authenticated user for a connection.
func (p *Presence) UserID(connID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	userID, ok := p.conns[connID]
	return userID, ok
}

// IsOnline reports whether the user has at least one live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[userID] > 0
}

// OnlineUsers returns the ids of all users with a live connection.
func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.users))
	for userID := range p.users {
		users = append(users, userID)
	}
	return users
}
