// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is an account. Password holds the bcrypt hash and is never serialised.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      Role      `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Events  []Event  `gorm:"foreignKey:AuthorID" json:"-"`
	Ratings []Rating `gorm:"foreignKey:UserID" json:"-"`

	EventCount int64 `gorm:"->;-:migration" json:"-"`
}

// Identity is the resolved caller attached to an authenticated request.
type Identity struct {
	ID    uint   `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity returns the request identity view of the user.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}
