// Package messaging stores direct messages between connected users and derives
// their read state.
package messaging

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"socialnet/backend/internal/apperr"
	"socialnet/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxContentLength = 4000

	DefaultConversationLimit = 50
	MaxConversationLimit     = 200

	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// UserDirectory resolves users by id.
type UserDirectory interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ResolveUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

// ConnectionChecker reports whether two users hold an accepted connection.
type ConnectionChecker interface {
	AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Service sends and reads direct messages.
type Service struct {
	db          *gorm.DB
	users       UserDirectory
	connections ConnectionChecker
	now         func() time.Time
}

// NewService creates a Service.
func NewService(db *gorm.DB, users UserDirectory, connections ConnectionChecker) *Service {
	return &Service{db: db, users: users, connections: connections, now: time.Now}
}

// WithClock replaces the time source used to stamp messages.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Send stores a message from senderID to receiverID. The two must be connected.
// The returned message has Sender and Receiver loaded.
func (s *Service) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error) {
	sender, err := s.users.ResolveUser(ctx, senderID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthenticated, "User not found")
		}
		return nil, err
	}
	receiver, err := s.users.ResolveUser(ctx, receiverID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.NotFound, "Recipient not found")
		}
		return nil, err
	}
	if senderID == receiverID {
		return nil, apperr.New(apperr.InvalidArgument, "Cannot send a message to yourself")
	}

	connected, err := s.connections.AreConnected(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, apperr.New(apperr.PermissionDenied, "You can only send messages to connected users")
	}

	if strings.TrimSpace(content) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "Message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, apperr.New(apperr.InvalidArgument, "Message content is too long")
	}

	message := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error; err != nil {
		return nil, apperr.Internalf("Failed to save message", err)
	}

	message.Sender = *sender
	message.Receiver = *receiver
	return message, nil
}

// Conversation marks every unread message from peerID to currentUserID as read and
// returns the latest limit messages between the two, newest first.
func (s *Service) Conversation(ctx context.Context, currentUserID, peerID uuid.UUID, limit int) ([]models.Message, error) {
	current, err := s.users.ResolveUser(ctx, currentUserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthenticated, "User not found")
		}
		return nil, err
	}
	peer, err := s.users.ResolveUser(ctx, peerID)
	if err != nil {
		return nil, err
	}

	connected, err := s.connections.AreConnected(ctx, currentUserID, peerID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, apperr.New(apperr.PermissionDenied, "You can only view conversations with connected users")
	}

	limit = clampLimit(limit, DefaultConversationLimit, MaxConversationLimit)

	var messages []models.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := markRead(tx, currentUserID, peerID); err != nil {
			return apperr.Internalf("Failed to mark messages as read", err)
		}

		err := tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			currentUserID, peerID, peerID, currentUserID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&messages).Error
		if err != nil {
			return apperr.Internalf("Failed to load conversation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range messages {
		if messages[i].SenderID == currentUserID {
			messages[i].Sender, messages[i].Receiver = *current, *peer
		} else {
			messages[i].Sender, messages[i].Receiver = *peer, *current
		}
	}
	return messages, nil
}

// UnreadCount counts the unread messages addressed to userID.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internalf("Failed to count unread messages", err)
	}
	return count, nil
}

// UnreadCountFrom counts the unread messages peerID sent to userID.
func (s *Service) UnreadCountFrom(ctx context.Context, userID, peerID uuid.UUID) (int64, error) {
	if _, err := s.users.ResolveUser(ctx, peerID); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", userID, peerID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internalf("Failed to count unread messages", err)
	}
	return count, nil
}

// RecentConversations returns the latest message exchanged with each peer of userID,
// newest first, with Sender and Receiver loaded.
func (s *Service) RecentConversations(ctx context.Context, userID uuid.UUID, limit int) ([]models.Message, error) {
	limit = clampLimit(limit, DefaultRecentLimit, MaxRecentLimit)

	var messages []models.Message
	err := s.db.WithContext(ctx).Raw(recentConversationsQuery, userID, userID, userID, limit).Scan(&messages).Error
	if err != nil {
		return nil, apperr.Internalf("Failed to load recent conversations", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]uuid.UUID, 0, len(messages)+1)
	ids = append(ids, userID)
	for _, m := range messages {
		ids = append(ids, m.PeerOf(userID))
	}
	users, err := s.users.ResolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Sender = users[messages[i].SenderID]
		messages[i].Receiver = users[messages[i].ReceiverID]
	}
	return messages, nil
}

// one row per peer: the latest message in either direction
const recentConversationsQuery = `
SELECT id, sender_id, receiver_id, content, is_read, created_at
FROM (
	SELECT id, sender_id, receiver_id, content, is_read, created_at,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
			ORDER BY created_at DESC, id DESC
		) AS rn
	FROM messages
	WHERE sender_id = ? OR receiver_id = ?
) ranked
WHERE rn = 1
ORDER BY created_at DESC, id DESC
LIMIT ?`

func markRead(tx *gorm.DB, receiverID, senderID uuid.UUID) (int64, error) {
	result := tx.Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
