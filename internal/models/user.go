package models

import "time"

// User is owned by the external identity provider. The messaging core only
// reads the identifier and display fields to populate senders and actors.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Username  string    `gorm:"uniqueIndex" json:"username"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
