// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered account. Username and email are unique.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"idUsuario"`
	Username  string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	BornDate  *time.Time `gorm:"type:date" json:"bornDate,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
