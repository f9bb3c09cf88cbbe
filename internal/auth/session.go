package auth

import (
	"context"
	"errors"
	"time"

	"socialnet/backend/internal/apperr"
	"socialnet/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore tracks tokens revoked by logout.
type SessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionStore creates a SessionStore backed by db.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Revoke records tokenID as logged out until expiresAt. Revoking twice is a no-op.
func (s *SessionStore) Revoke(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error {
	if tokenID == "" {
		return apperr.New(apperr.InvalidArgument, "Token has no identifier")
	}

	revoked := models.RevokedToken{TokenID: tokenID, UserID: userID, ExpiresAt: expiresAt.UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&revoked).Error
	if err != nil {
		return apperr.Internalf("Failed to revoke token", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was logged out.
func (s *SessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked models.RevokedToken
	err := s.db.WithContext(ctx).Select("token_id").First(&revoked, "token_id = ?", tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internalf("Failed to check token", err)
	}
	return true, nil
}

// PurgeExpired deletes revocations for tokens that have expired anyway.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", s.now().UTC()).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, apperr.Internalf("Failed to purge revoked tokens", result.Error)
	}
	return result.RowsAffected, nil
}
