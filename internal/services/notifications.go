package services

import (
	"gorm.io/gorm"

	"github.com/Tahmied/arterest/internal/database"
	"github.com/Tahmied/arterest/internal/models"
	"github.com/Tahmied/arterest/internal/realtime"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
	"github.com/Tahmied/arterest/pkg/logger"
)

// DefaultNotificationLimit applies when the listing caller passes no limit.
const DefaultNotificationLimit = 20

// MaxNotificationLimit caps a single notification page.
const MaxNotificationLimit = 100

// NotificationService records directed notifications as side effects of
// like/comment/follow/save actions and pushes them to live recipients.
type NotificationService struct {
	db          *gorm.DB
	broadcaster realtime.Broadcaster
}

func NewNotificationService(db *gorm.DB, broadcaster realtime.Broadcaster) *NotificationService {
	return &NotificationService{db: db, broadcaster: broadcaster}
}

func matchScope(tx *gorm.DB, actorID, recipientID string, typ models.NotificationType, pinID *string) *gorm.DB {
	tx = tx.Where("sender_id = ? AND recipient_id = ? AND type = ?", actorID, recipientID, typ)
	if pinID == nil {
		return tx.Where("pin_id IS NULL")
	}
	return tx.Where("pin_id = ?", *pinID)
}

// Notify records a notification from actor to recipient. Self-notifications
// are a silent no-op. For toggle-backed types (like, follow, save) any
// outstanding notification for the same (actor, recipient, type, pin) scope
// is replaced inside one transaction, so repeated toggles never accumulate
// duplicates. Comment notifications always append.
func (s *NotificationService) Notify(actorID, recipientID string, typ models.NotificationType, pinID *string, comment string) (*models.Notification, error) {
	if actorID == recipientID {
		return nil, nil
	}
	if !models.ValidNotificationType(typ) {
		return nil, apperrors.BadRequest("Unknown notification type")
	}

	n := models.Notification{
		RecipientID: recipientID,
		SenderID:    actorID,
		Type:        typ,
		PinID:       pinID,
		Comment:     comment,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if typ != models.NotificationTypeComment {
			if err := matchScope(tx.Model(&models.Notification{}), actorID, recipientID, typ, pinID).
				Delete(&models.Notification{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&n).Error
	})
	if err != nil {
		return nil, apperrors.Transient("Failed to create notification")
	}

	database.InvalidateUnreadCount(recipientID)
	s.push(&n)
	return &n, nil
}

// push delivers the populated notification to the recipient's personal
// channel. Best-effort: a failed load only skips the realtime copy.
func (s *NotificationService) push(n *models.Notification) {
	if s.broadcaster == nil {
		return
	}

	var populated models.Notification
	if err := s.db.Preload("Sender").Preload("Pin").First(&populated, "id = ?", n.ID).Error; err != nil {
		logger.Warn().Err(err).Str("notification_id", n.ID).Msg("failed to populate notification for push")
		return
	}
	s.broadcaster.Publish(realtime.UserChannel(n.RecipientID), realtime.EventNewNotification, populated)
}

// Revoke deletes the notification(s) matching the reversed action. Deleting
// nothing is not an error: the toggle may never have notified (self-action)
// or the row may already be gone.
func (s *NotificationService) Revoke(actorID, recipientID string, typ models.NotificationType, pinID *string) error {
	err := matchScope(s.db.Model(&models.Notification{}), actorID, recipientID, typ, pinID).
		Delete(&models.Notification{}).Error
	if err != nil {
		return apperrors.Transient("Failed to remove notification")
	}
	database.InvalidateUnreadCount(recipientID)
	return nil
}

// List returns the recipient's notifications newest first with actor and
// subject pin populated, plus the total unread count independent of limit.
func (s *NotificationService) List(recipientID string, limit int, unreadOnly bool) ([]models.Notification, int64, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	query := s.db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(limit).
		Preload("Sender").Preload("Pin").
		Find(&notifications).Error
	if err != nil {
		return nil, 0, apperrors.Transient("Failed to fetch notifications")
	}

	unreadCount, err := s.UnreadCount(recipientID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unreadCount, nil
}

// MarkRead flips the read flag on the given notifications, scoped strictly
// to the recipient. Idempotent.
func (s *NotificationService) MarkRead(recipientID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND id IN ?", recipientID, notificationIDs).
		Update("read", true).Error
	if err != nil {
		return apperrors.Transient("Failed to update notifications")
	}
	database.InvalidateUnreadCount(recipientID)
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (s *NotificationService) MarkAllRead(recipientID string) error {
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
	if err != nil {
		return apperrors.Transient("Failed to update notifications")
	}
	database.InvalidateUnreadCount(recipientID)
	return nil
}

// UnreadCount returns the recipient's badge count, served from the Redis
// cache when warm. The realtime channel carries fresh events; this count
// only backs badge polling.
func (s *NotificationService) UnreadCount(recipientID string) (int64, error) {
	if count, ok := database.GetCachedUnreadCount(recipientID); ok {
		return count, nil
	}

	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Transient("Failed to count notifications")
	}
	database.SetCachedUnreadCount(recipientID, count)
	return count, nil
}
