package model

import "time"

// User represents a user in the system.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName sets the GORM table name.
func (User) TableName() string {
	return "users"
}
