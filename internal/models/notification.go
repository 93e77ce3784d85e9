package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeComment NotificationType = "comment"
	NotificationTypeFollow  NotificationType = "follow"
	NotificationTypeSave    NotificationType = "save"
)

// Notification is a directed event from an actor to a recipient. Like and
// follow notifications pair with their reversal: the triggering toggle
// deletes the matching row on unlike/unfollow.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:text" json:"id"`
	RecipientID string           `gorm:"index:idx_notifications_recipient_created,priority:1;type:text;not null" json:"recipientId"`
	SenderID    string           `gorm:"index;type:text;not null" json:"senderId"`
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PinID       *string          `gorm:"index;type:text" json:"pinId,omitempty"`
	Comment     string           `gorm:"type:text" json:"comment,omitempty"`
	Read        bool             `gorm:"default:false" json:"read"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_recipient_created,priority:2" json:"createdAt"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender"`
	Pin    *Pin `gorm:"foreignKey:PinID" json:"pin,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return
}

// ValidNotificationType reports whether t is one of the supported kinds.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTypeLike, NotificationTypeComment, NotificationTypeFollow, NotificationTypeSave:
		return true
	}
	return false
}
