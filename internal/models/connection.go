package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionStatus defines the state of a connection request.
type ConnectionStatus string

const (
	// ConnectionPending means the receiver has not answered yet.
	ConnectionPending ConnectionStatus = "pending"

	// ConnectionAccepted means both users are connected and may message each other.
	ConnectionAccepted ConnectionStatus = "accepted"

	// ConnectionRejected means the receiver declined. The pair stays blocked.
	ConnectionRejected ConnectionStatus = "rejected"
)

// Connection is a request/relationship between two distinct users.
// Requester and receiver keep the order of creation; PairLow/PairHigh hold the same two
// ids sorted so that the unique index covers the unordered pair.
type Connection struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	RequesterID uuid.UUID        `gorm:"type:uuid;not null;index;check:chk_connections_distinct,requester_id <> receiver_id"`
	ReceiverID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	PairLow     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_connections_pair"`
	PairHigh    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_connections_pair"`
	Status      ConnectionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Receiver  User `gorm:"foreignKey:ReceiverID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (c *Connection) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = NewID()
	}
	c.PairLow, c.PairHigh = OrderedPair(c.RequesterID, c.ReceiverID)
	return nil
}

// PeerOf returns the participant that is not userID.
func (c *Connection) PeerOf(userID uuid.UUID) uuid.UUID {
	if c.RequesterID == userID {
		return c.ReceiverID
	}
	return c.RequesterID
}

// OrderedPair sorts two ids so that {a,b} and {b,a} produce the same key.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
