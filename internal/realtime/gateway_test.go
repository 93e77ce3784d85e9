package realtime

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tahmied/arterest/internal/config"
	"github.com/Tahmied/arterest/pkg/logger"
	"github.com/Tahmied/arterest/pkg/utils"
)

func TestMain(m *testing.M) {
	logger.Init("production")
	config.AppConfig = &config.Config{JWTSecret: "gateway-test-secret"}
	os.Exit(m.Run())
}

type broadcastCall struct {
	namespace string
	room      string
	event     string
	args      []interface{}
}

type fakeRooms struct {
	calls []broadcastCall
}

func (f *fakeRooms) BroadcastToRoom(namespace, room, event string, args ...interface{}) bool {
	f.calls = append(f.calls, broadcastCall{namespace: namespace, room: room, event: event, args: args})
	return true
}

type emittedEvent struct {
	event string
	args  []interface{}
}

// fakeConn records room membership and emits instead of holding a transport
type fakeConn struct {
	id      string
	ctx     interface{}
	rooms   map[string]bool
	emitted []emittedEvent
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, rooms: make(map[string]bool)}
}

func (f *fakeConn) ID() string               { return f.id }
func (f *fakeConn) Context() interface{}     { return f.ctx }
func (f *fakeConn) SetContext(v interface{}) { f.ctx = v }
func (f *fakeConn) Join(room string)         { f.rooms[room] = true }
func (f *fakeConn) Leave(room string)        { delete(f.rooms, room) }
func (f *fakeConn) Emit(event string, args ...interface{}) {
	f.emitted = append(f.emitted, emittedEvent{event: event, args: args})
}

func newTestGateway() (*Gateway, *fakeRooms) {
	rooms := &fakeRooms{}
	return &Gateway{rooms: rooms, presence: NewPresence()}, rooms
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, userID)
	assert.NoError(t, err)
	return token
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "user:alice", UserChannel("alice"))
	assert.Equal(t, "conversation:c1", ConversationChannel("c1"))
}

func TestPublish_RoutesToChannel(t *testing.T) {
	g, rooms := newTestGateway()

	payload := map[string]interface{}{"content": "hi"}
	g.Publish(ConversationChannel("c1"), EventNewMessage, payload)

	assert.Len(t, rooms.calls, 1)
	call := rooms.calls[0]
	assert.Equal(t, "/", call.namespace)
	assert.Equal(t, "conversation:c1", call.room)
	assert.Equal(t, EventNewMessage, call.event)
	assert.Len(t, call.args, 1)
	assert.Equal(t, payload, call.args[0])
}

func TestPublish_ChannelsAreIndependent(t *testing.T) {
	g, rooms := newTestGateway()

	g.Publish(UserChannel("bob"), EventNewNotification, "for bob")
	g.Publish(ConversationChannel("c1"), EventNewMessage, "for the room")

	assert.Len(t, rooms.calls, 2)
	assert.Equal(t, "user:bob", rooms.calls[0].room)
	assert.Equal(t, "conversation:c1", rooms.calls[1].room)
}

func TestPublish_NilGatewayIsSafe(t *testing.T) {
	var g *Gateway
	assert.NotPanics(t, func() {
		g.Publish(UserChannel("bob"), EventNewNotification, "dropped")
	})
}

func TestAuthenticate_BindsIdentity(t *testing.T) {
	g, rooms := newTestGateway()
	conn := newFakeConn("conn1")

	g.handleAuthenticate(conn, mintToken(t, "alice"))

	assert.Equal(t, "alice", conn.ctx)
	assert.True(t, conn.rooms[UserChannel("alice")])
	assert.True(t, conn.rooms[presenceRoom])
	assert.True(t, g.presence.IsOnline("alice"))

	// First connection announces the user and receives the online snapshot
	assert.Len(t, rooms.calls, 1)
	assert.Equal(t, presenceRoom, rooms.calls[0].room)
	assert.Equal(t, EventPresenceUpdate, rooms.calls[0].event)
	assert.Len(t, conn.emitted, 1)
	assert.Equal(t, EventOnlineUsers, conn.emitted[0].event)
}

func TestAuthenticate_RejectsInvalidToken(t *testing.T) {
	g, rooms := newTestGateway()
	conn := newFakeConn("conn1")

	g.handleAuthenticate(conn, "not-a-token")

	assert.Nil(t, conn.ctx)
	assert.Empty(t, conn.rooms)
	assert.Empty(t, rooms.calls)
	assert.Empty(t, g.presence.OnlineUsers())
}

func TestAuthenticate_RebindLeavesPreviousPersonalChannel(t *testing.T) {
	g, _ := newTestGateway()
	conn := newFakeConn("conn1")

	g.handleAuthenticate(conn, mintToken(t, "alice"))
	g.handleAuthenticate(conn, mintToken(t, "bob"))

	assert.Equal(t, "bob", conn.ctx)
	assert.True(t, conn.rooms[UserChannel("bob")])
	// The old personal channel must be dropped, not accumulated
	assert.False(t, conn.rooms[UserChannel("alice")])
	assert.False(t, g.presence.IsOnline("alice"))
	assert.True(t, g.presence.IsOnline("bob"))
}

func TestJoinLeaveConversation_RequireAuthentication(t *testing.T) {
	g, _ := newTestGateway()

	anon := newFakeConn("anon")
	g.handleJoinConversation(anon, "c1")
	assert.Empty(t, anon.rooms)

	// An unauthenticated leave must not touch room membership either
	anon.rooms[ConversationChannel("c1")] = true
	g.handleLeaveConversation(anon, "c1")
	assert.True(t, anon.rooms[ConversationChannel("c1")])

	authed := newFakeConn("authed")
	g.handleAuthenticate(authed, mintToken(t, "alice"))
	g.handleJoinConversation(authed, "c1")
	assert.True(t, authed.rooms[ConversationChannel("c1")])
	g.handleLeaveConversation(authed, "c1")
	assert.False(t, authed.rooms[ConversationChannel("c1")])
}

func TestTyping_RelaysSanitizedUsername(t *testing.T) {
	g, rooms := newTestGateway()
	conn := newFakeConn("conn1")
	g.handleAuthenticate(conn, mintToken(t, "alice"))
	rooms.calls = nil

	g.handleTyping(conn, map[string]interface{}{
		"conversationId": "c1",
		"username":       "  <b>alice</b>  ",
	})

	assert.Len(t, rooms.calls, 1)
	call := rooms.calls[0]
	assert.Equal(t, ConversationChannel("c1"), call.room)
	assert.Equal(t, EventUserTyping, call.event)

	payload, ok := call.args[0].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "alice", payload["userId"])
	assert.Equal(t, "&lt;b&gt;alice&lt;/b&gt;", payload["username"])
	assert.NotNil(t, payload["expiresAt"])
}

func TestTyping_IgnoredWhenUnauthenticated(t *testing.T) {
	g, rooms := newTestGateway()
	conn := newFakeConn("conn1")

	g.handleTyping(conn, map[string]interface{}{"conversationId": "c1"})
	assert.Empty(t, rooms.calls)
}

func TestDisconnect_LastConnectionGoesOffline(t *testing.T) {
	g, rooms := newTestGateway()
	conn := newFakeConn("conn1")
	g.handleAuthenticate(conn, mintToken(t, "alice"))
	rooms.calls = nil

	g.handleDisconnect(conn, "client namespace disconnect")

	assert.False(t, g.presence.IsOnline("alice"))
	assert.Len(t, rooms.calls, 1)
	assert.Equal(t, presenceRoom, rooms.calls[0].room)
	assert.Equal(t, EventPresenceUpdate, rooms.calls[0].event)
	payload, ok := rooms.calls[0].args[0].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, false, payload["isOnline"])
}
