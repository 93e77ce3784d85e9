package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Tahmied/arterest/internal/database"
	"github.com/Tahmied/arterest/internal/models"
	"github.com/Tahmied/arterest/internal/services"
	"github.com/Tahmied/arterest/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("production")
	os.Exit(m.Run())
}

// setupTest initializes an in-memory SQLite DB and a wired Handler
func setupTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Pin{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	db.Exec("DELETE FROM messages")
	db.Exec("DELETE FROM conversations")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM pins")
	db.Exec("DELETE FROM users")

	database.DB = db

	h := New(
		services.NewConversationService(db),
		services.NewMessageService(db, nil),
		services.NewNotificationService(db, nil),
	)
	return h, db
}

func testContext(t *testing.T, method, target string, body interface{}, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, target, buf)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if userID != "" {
		c.Set("userId", userID)
	}
	return c, w
}

func TestCreateConversation_GetOrCreateSemantics(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})

	c, w := testContext(t, "POST", "/api/conversations", gin.H{"participantId": "bob"}, "alice")
	h.CreateConversation(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Conversation models.Conversation `json:"conversation"`
		Participants []models.User       `json:"participants"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.NotEmpty(t, first.Conversation.ID)
	assert.Len(t, first.Participants, 2)

	// Same pair from the other side returns the same conversation
	c, w = testContext(t, "POST", "/api/conversations", gin.H{"participantId": "alice"}, "bob")
	h.CreateConversation(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var second struct {
		Conversation models.Conversation `json:"conversation"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
}

func TestCreateConversation_SelfRejected(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})

	c, w := testContext(t, "POST", "/api/conversations", gin.H{"participantId": "alice"}, "alice")
	h.CreateConversation(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateConversation_Unauthorized(t *testing.T) {
	h, _ := setupTest(t)

	c, w := testContext(t, "POST", "/api/conversations", gin.H{"participantId": "bob"}, "")
	h.CreateConversation(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendAndGetMessages(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})

	conv, err := h.Conversations.GetOrCreate("alice", "bob")
	assert.NoError(t, err)

	c, w := testContext(t, "POST", "/api/conversations/"+conv.ID+"/messages", gin.H{"content": "hi bob"}, "alice")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.SendMessage(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	var sent struct {
		Message models.Message `json:"message"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.Equal(t, "hi bob", sent.Message.Content)
	assert.Equal(t, "alice", sent.Message.Sender.Username)

	c, w = testContext(t, "GET", "/api/conversations/"+conv.ID+"/messages?limit=50", nil, "bob")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.GetMessages(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Messages []models.Message `json:"messages"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Messages, 1)
	assert.Equal(t, "hi bob", listed.Messages[0].Content)
}

func TestSendMessage_WhitespaceOnlyRejected(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})

	conv, err := h.Conversations.GetOrCreate("alice", "bob")
	assert.NoError(t, err)

	c, w := testContext(t, "POST", "/api/conversations/"+conv.ID+"/messages", gin.H{"content": "   "}, "alice")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.SendMessage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	db.Table("messages").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendMessage_NonParticipantForbidden(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})
	db.Create(&models.User{ID: "mallory", Username: "mallory"})

	conv, err := h.Conversations.GetOrCreate("alice", "bob")
	assert.NoError(t, err)

	c, w := testContext(t, "POST", "/api/conversations/"+conv.ID+"/messages", gin.H{"content": "hello"}, "mallory")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.SendMessage(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetNotificationsAndMarkRead(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})
	db.Create(&models.Pin{ID: "pin1", Title: "sunset", CreatorID: "bob"})

	pinID := "pin1"
	_, err := h.Notifications.Notify("alice", "bob", models.NotificationTypeLike, &pinID, "")
	assert.NoError(t, err)

	c, w := testContext(t, "GET", "/api/notifications?limit=20", nil, "bob")
	h.GetNotifications(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unreadCount"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Notifications, 1)
	assert.Equal(t, int64(1), listed.UnreadCount)
	assert.Equal(t, "alice", listed.Notifications[0].Sender.Username)
	assert.NotNil(t, listed.Notifications[0].Pin)

	c, w = testContext(t, "PATCH", "/api/notifications", gin.H{"markAllRead": true}, "bob")
	h.UpdateNotifications(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testContext(t, "GET", "/api/notifications/unread-count", nil, "bob")
	h.GetUnreadCount(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var badge struct {
		Count int64 `json:"count"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &badge))
	assert.Equal(t, int64(0), badge.Count)
}

func TestGetMessages_MalformedConversationID(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})

	// Conversation ids are UUIDs; anything else cannot exist
	c, w := testContext(t, "GET", "/api/conversations/not-a-uuid/messages", nil, "alice")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.GetMessages(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = testContext(t, "POST", "/api/conversations/not-a-uuid/messages", gin.H{"content": "hi"}, "alice")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.SendMessage(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMessages_InvalidBeforeTimestamp(t *testing.T) {
	h, db := setupTest(t)
	db.Create(&models.User{ID: "alice", Username: "alice"})
	db.Create(&models.User{ID: "bob", Username: "bob"})

	conv, err := h.Conversations.GetOrCreate("alice", "bob")
	assert.NoError(t, err)

	c, w := testContext(t, "GET", "/api/conversations/"+conv.ID+"/messages?before=yesterday", nil, "alice")
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}
	h.GetMessages(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
