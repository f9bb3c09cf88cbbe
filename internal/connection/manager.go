// Package connection owns the lifecycle of connection requests between users and
// answers whether two users are connected.
package connection

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

// Decision is the receiver's answer to a pending request.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

// UserResolver looks up a user by id, returning an apperr NotFound when absent.
type UserResolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Peer is an accepted connection seen from one side.
type Peer struct {
	ConnectionID uuid.UUID
	User         models.User
}

// Manager handles connection requests.
type Manager struct {
	db    *gorm.DB
	users UserResolver
	now   func() time.Time
}

// NewManager creates a Manager.
func NewManager(db *gorm.DB, users UserResolver) *Manager {
	return &Manager{db: db, users: users, now: time.Now}
}

// WithClock replaces the time source used for status changes.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Request creates a pending connection from requesterID to receiverID.
// Any existing connection for the pair, whatever its direction or status, is a conflict.
func (m *Manager) Request(ctx context.Context, requesterID, receiverID uuid.UUID) (*models.Connection, error) {
	if requesterID == receiverID {
		return nil, apperr.New(apperr.InvalidArgument, "Cannot connect to yourself")
	}
	if _, err := m.users.ResolveUser(ctx, receiverID); err != nil {
		return nil, err
	}

	db := m.db.WithContext(ctx)
	low, high := models.OrderedPair(requesterID, receiverID)

	var existing int64
	err := db.Model(&models.Connection{}).
		Where("pair_low = ? AND pair_high = ?", low, high).
		Count(&existing).Error
	if err != nil {
		return nil, apperr.Internalf("Failed to check connection", err)
	}
	if existing > 0 {
		return nil, apperr.New(apperr.Conflict, "Connection already exists")
	}

	now := m.now().UTC()
	connection := &models.Connection{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.ConnectionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Omit(clause.Associations).Create(connection).Error; err != nil {
		// a concurrent request for the same pair won the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "Connection already exists")
		}
		return nil, apperr.Internalf("Failed to create connection", err)
	}
	return connection, nil
}

// Respond accepts or rejects a pending request addressed to responderID.
func (m *Manager) Respond(ctx context.Context, connectionID, responderID uuid.UUID, decision Decision) (*models.Connection, error) {
	var status models.ConnectionStatus
	switch decision {
	case Accept:
		status = models.ConnectionAccepted
	case Reject:
		status = models.ConnectionRejected
	default:
		return nil, apperr.New(apperr.InvalidArgument, "Unknown decision")
	}

	var connection models.Connection
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND receiver_id = ?", connectionID, responderID).First(&connection).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Connection request not found")
		}
		if err != nil {
			return apperr.Internalf("Failed to load connection", err)
		}
		if connection.Status != models.ConnectionPending {
			return apperr.New(apperr.InvalidState, "Connection request is not pending")
		}

		now := m.now().UTC()
		result := tx.Model(&models.Connection{}).
			Where("id = ? AND status = ?", connection.ID, models.ConnectionPending).
			Updates(map[string]any{"status": status, "updated_at": now})
		if result.Error != nil {
			return apperr.Internalf("Failed to update connection", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.InvalidState, "Connection request is not pending")
		}

		connection.Status = status
		connection.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// AreConnected reports whether an accepted connection exists between a and b.
func (m *Manager) AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}
	low, high := models.OrderedPair(a, b)

	var count int64
	err := m.db.WithContext(ctx).Model(&models.Connection{}).
		Where("pair_low = ? AND pair_high = ? AND status = ?", low, high, models.ConnectionAccepted).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internalf("Failed to check connection", err)
	}
	return count > 0, nil
}

// ListAccepted returns the peers userID is connected to, most recent first.
func (m *Manager) ListAccepted(ctx context.Context, userID uuid.UUID) ([]Peer, error) {
	var connections []models.Connection
	err := m.db.WithContext(ctx).
		Preload("Requester").Preload("Receiver").
		Where("(requester_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.ConnectionAccepted).
		Order("updated_at DESC, id DESC").
		Find(&connections).Error
	if err != nil {
		return nil, apperr.Internalf("Failed to list connections", err)
	}

	peers := make([]Peer, 0, len(connections))
	for _, c := range connections {
		peer := c.Requester
		if c.RequesterID == userID {
			peer = c.Receiver
		}
		peers = append(peers, Peer{ConnectionID: c.ID, User: peer})
	}
	return peers, nil
}

// ListPending returns the requests waiting for userID to answer, with requesters loaded.
func (m *Manager) ListPending(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	var connections []models.Connection
	err := m.db.WithContext(ctx).
		Preload("Requester").
		Where("receiver_id = ? AND status = ?", userID, models.ConnectionPending).
		Order("created_at DESC, id DESC").
		Find(&connections).Error
	if err != nil {
		return nil, apperr.Internalf("Failed to list pending requests", err)
	}
	return connections, nil
}

// Statuses returns the status of the connection between viewerID and each of userIDs.
// Users without a connection are absent from the map.
func (m *Manager) Statuses(ctx context.Context, viewerID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]models.ConnectionStatus, error) {
	statuses := make(map[uuid.UUID]models.ConnectionStatus, len(userIDs))
	if len(userIDs) == 0 {
		return statuses, nil
	}

	var connections []models.Connection
	err := m.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id IN ?) OR (receiver_id = ? AND requester_id IN ?)", viewerID, userIDs, viewerID, userIDs).
		Find(&connections).Error
	if err != nil {
		return nil, apperr.Internalf("Failed to load connection statuses", err)
	}
	for _, c := range connections {
		statuses[c.PeerOf(viewerID)] = c.Status
	}
	return statuses, nil
}
