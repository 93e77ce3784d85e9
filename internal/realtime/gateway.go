package realtime

import (
	"net/http"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"github.com/Tahmied/arterest/pkg/logger"
	"github.com/Tahmied/arterest/pkg/utils"
)

// Channel name helpers. Every user owns one personal channel; every
// conversation owns one room channel.
func UserChannel(userID string) string {
	return "user:" + userID
}

func ConversationChannel(conversationID string) string {
	return "conversation:" + conversationID
}

// Server-pushed events
const (
	EventNewMessage             = "new-message"
	EventNewMessageNotification = "new-message-notification"
	EventNewNotification        = "new-notification"
	EventUserTyping             = "user-typing"
	EventUserStopTyping         = "user-stop-typing"
	EventPresenceUpdate         = "presence-update"
	EventOnlineUsers            = "online-users"
)

// TypingExpiry is the consumer-side timeout after which a typing indicator
// lapses without an explicit stop signal. The gateway only hints at it via
// the expiresAt field; it never enforces the expiry itself.
const TypingExpiry = 3 * time.Second

// presenceRoom is a broadcast channel every authenticated connection joins,
// used for online/offline updates.
const presenceRoom = "presence"

// Broadcaster is the fan-out contract the services depend on. Delivery is
// fire-and-forget and at-most-once: connections subscribed to the channel at
// publish time receive the payload, everyone else never will.
type Broadcaster interface {
	Publish(channel, event string, payload interface{})
}

// roomBroadcaster is the slice of *socketio.Server the gateway publishes
// through; tests substitute a recording fake.
type roomBroadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

// clientConn is the slice of socketio.Conn the event handlers touch; tests
// substitute a recording fake.
type clientConn interface {
	ID() string
	Context() interface{}
	SetContext(v interface{})
	Join(room string)
	Leave(room string)
	Emit(event string, args ...interface{})
}

// Gateway is the single-process publish/subscribe hub. It owns the socket.io
// server, routes client events to room membership changes, and exposes
// Publish for the HTTP side to fan out persisted events.
type Gateway struct {
	server   *socketio.Server
	rooms    roomBroadcaster
	presence *Presence
}

func NewGateway(presence *Presence) *Gateway {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	g := &Gateway{
		server:   server,
		rooms:    server,
		presence: presence,
	}
	g.registerHandlers()
	return g
}

// Publish delivers payload to every connection currently joined to channel.
// Failures never propagate to callers; loss of a push is recovered through
// the listing APIs.
func (g *Gateway) Publish(channel, event string, payload interface{}) {
	if g == nil || g.rooms == nil {
		return
	}
	g.rooms.BroadcastToRoom("/", channel, event, payload)
}

// Serve runs the socket.io event loop until Close.
func (g *Gateway) Serve() error {
	return g.server.Serve()
}

func (g *Gateway) Close() error {
	return g.server.Close()
}

// ServeHTTP exposes the socket.io endpoint to the router.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.server.ServeHTTP(w, r)
}

func (g *Gateway) registerHandlers() {
	g.server.OnConnect("/", func(s socketio.Conn) error {
		// Connections stay anonymous until the authenticate handshake;
		// an anonymous connection receives nothing.
		s.SetContext("")
		logger.Debug().Str("conn_id", s.ID()).Msg("socket connected")
		return nil
	})

	g.server.OnEvent("/", "authenticate", func(s socketio.Conn, token string) {
		g.handleAuthenticate(s, token)
	})
	g.server.OnEvent("/", "join-conversation", func(s socketio.Conn, conversationID string) {
		g.handleJoinConversation(s, conversationID)
	})
	g.server.OnEvent("/", "leave-conversation", func(s socketio.Conn, conversationID string) {
		g.handleLeaveConversation(s, conversationID)
	})
	g.server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		g.handleTyping(s, data)
	})
	g.server.OnEvent("/", "stop-typing", func(s socketio.Conn, data map[string]interface{}) {
		g.handleStopTyping(s, data)
	})
	g.server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		g.handleDisconnect(s, reason)
	})
	g.server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("socket error")
	})
}

func (g *Gateway) handleAuthenticate(s clientConn, token string) {
	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Warn().Str("conn_id", s.ID()).Err(err).Msg("socket authenticate rejected")
		return
	}
	userID := claims.UserID

	// Join is additive: re-authenticating under a new identity must drop
	// the previous personal channel or the connection keeps receiving the
	// old user's events.
	if prev, _ := s.Context().(string); prev != "" && prev != userID {
		s.Leave(UserChannel(prev))
	}

	s.SetContext(userID)
	s.Join(UserChannel(userID))
	s.Join(presenceRoom)

	first := g.presence.Add(s.ID(), userID)
	if first {
		g.Publish(presenceRoom, EventPresenceUpdate, map[string]interface{}{
			"userId":   userID,
			"isOnline": true,
		})
	}

	// Current snapshot for the connecting client
	s.Emit(EventOnlineUsers, g.presence.OnlineUsers())

	logger.Info().Str("conn_id", s.ID()).Str("user_id", userID).Msg("socket authenticated")
}

func (g *Gateway) handleJoinConversation(s clientConn, conversationID string) {
	if userID, _ := s.Context().(string); userID == "" {
		return
	}
	s.Join(ConversationChannel(conversationID))
}

func (g *Gateway) handleLeaveConversation(s clientConn, conversationID string) {
	if userID, _ := s.Context().(string); userID == "" {
		return
	}
	s.Leave(ConversationChannel(conversationID))
}

func (g *Gateway) handleTyping(s clientConn, data map[string]interface{}) {
	userID, _ := s.Context().(string)
	if userID == "" {
		return
	}
	conversationID, _ := data["conversationId"].(string)
	if conversationID == "" {
		return
	}

	// Client-supplied display name, normalized and escaped before relay
	username, _ := data["username"].(string)
	username = utils.SanitizeHTML(utils.NormalizeWhitespace(username))

	// Ephemeral: relayed, never persisted. Receivers drop the indicator
	// after TypingExpiry unless a follow-up arrives.
	g.Publish(ConversationChannel(conversationID), EventUserTyping, map[string]interface{}{
		"userId":    userID,
		"username":  username,
		"expiresAt": time.Now().Add(TypingExpiry).Unix(),
	})
}

func (g *Gateway) handleStopTyping(s clientConn, data map[string]interface{}) {
	userID, _ := s.Context().(string)
	if userID == "" {
		return
	}
	conversationID, _ := data["conversationId"].(string)
	if conversationID == "" {
		return
	}

	g.Publish(ConversationChannel(conversationID), EventUserStopTyping, map[string]interface{}{
		"userId": userID,
	})
}

func (g *Gateway) handleDisconnect(s clientConn, reason string) {
	userID, last := g.presence.Remove(s.ID())
	if last {
		g.Publish(presenceRoom, EventPresenceUpdate, map[string]interface{}{
			"userId":   userID,
			"isOnline": false,
		})
	}
	logger.Debug().Str("conn_id", s.ID()).Str("reason", reason).Msg("socket disconnected")
}
