package model

import "time"

type User struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email           string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string    `gorm:"size:255;not null" json:"-"`
	DisplayName     string    `gorm:"size:120;not null;default:''" json:"display_name"`
	ProfileImageKey *string   `gorm:"size:255" json:"profile_image_key"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
