package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMessageLength caps message content, counted in runes.
const MaxMessageLength = 5000

// Message is a single entry in a conversation. Read flips false->true when
// the other participant lists the conversation and never reverses.
type Message struct {
	ID             string    `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string    `gorm:"index:idx_messages_conversation_created,priority:1;type:text;not null" json:"conversationId"`
	SenderID       string    `gorm:"index;type:text;not null" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
