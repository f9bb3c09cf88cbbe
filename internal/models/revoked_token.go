package models

import (
	"time"

	"github.com/google/uuid"
)

// RevokedToken records a logged-out token until it would have expired anyway.
type RevokedToken struct {
	TokenID   string    `gorm:"size:64;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
