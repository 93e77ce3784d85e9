package models

import "time"

// Pin is owned by the pin CRUD layer, which lives outside this core.
// Notifications reference pins as their subject, so a read-only projection
// of the row is kept here for populate-on-read.
type Pin struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `gorm:"column:image_url" json:"imageUrl"`
	CreatorID string    `gorm:"index;type:text" json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}
