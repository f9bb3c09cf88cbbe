package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account in the user directory.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"size:255;uniqueIndex;not null"`
	Email          string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash   string    `gorm:"size:255;not null"`
	ProfilePicture *string   `gorm:"size:512"` // object key in the picture bucket
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = NewID()
	}
	return nil
}

// NewID returns a time-ordered identifier, so ordering by id follows insertion order.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
