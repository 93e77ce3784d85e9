package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresence_AddRemove(t *testing.T) {
	p := NewPresence()

	first := p.Add("conn1", "alice")
	assert.True(t, first)
	assert.True(t, p.IsOnline("alice"))

	userID, ok := p.UserID("conn1")
	assert.True(t, ok)
	assert.Equal(t, "alice", userID)

	removed, last := p.Remove("conn1")
	assert.Equal(t, "alice", removed)
	assert.True(t, last)
	assert.False(t, p.IsOnline("alice"))

	_, ok = p.UserID("conn1")
	assert.False(t, ok)
}

func TestPresence_MultipleTabsSameUser(t *testing.T) {
	p := NewPresence()

	assert.True(t, p.Add("tab1", "alice"))
	// Second tab does not re-announce the user as newly online
	assert.False(t, p.Add("tab2", "alice"))

	_, last := p.Remove("tab1")
	assert.False(t, last)
	assert.True(t, p.IsOnline("alice"))

	_, last = p.Remove("tab2")
	assert.True(t, last)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresence_RemoveUnknownConnection(t *testing.T) {
	p := NewPresence()

	userID, last := p.Remove("ghost")
	assert.Empty(t, userID)
	assert.False(t, last)
}

func TestPresence_ReauthenticateSameConnection(t *testing.T) {
	p := NewPresence()

	assert.True(t, p.Add("conn1", "alice"))
	// Same identity again is a no-op
	assert.False(t, p.Add("conn1", "alice"))
	assert.True(t, p.IsOnline("alice"))

	// Switching identity on a live connection moves the binding
	assert.True(t, p.Add("conn1", "bob"))
	assert.False(t, p.IsOnline("alice"))
	assert.True(t, p.IsOnline("bob"))
}

func TestPresence_OnlineUsers(t *testing.T) {
	p := NewPresence()

	p.Add("c1", "alice")
	p.Add("c2", "bob")
	p.Add("c3", "bob")

	assert.ElementsMatch(t, []string{"alice", "bob"}, p.OnlineUsers())
}
