package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message from one user to another.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_sender_receiver;check:chk_messages_distinct,sender_id <> receiver_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_sender_receiver;index:idx_messages_unread,priority:1"`
	Content    string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_messages_unread,priority:2"`
	CreatedAt  time.Time `gorm:"index"`

	Sender   User `gorm:"foreignKey:SenderID"`
	Receiver User `gorm:"foreignKey:ReceiverID"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = NewID()
	}
	return nil
}

// PeerOf returns the participant that is not userID.
func (m *Message) PeerOf(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
