package model

import "time"

// Notification is a message addressed to one user
type Notification struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	EntityType string    `gorm:"type:varchar(40);not null;default:''" json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	IsRead     bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
