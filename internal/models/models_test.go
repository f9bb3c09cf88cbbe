package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderedPairIsSymmetric(t *testing.T) {
	a, b := NewID(), NewID()

	low1, high1 := OrderedPair(a, b)
	low2, high2 := OrderedPair(b, a)

	assert.Equal(t, low1, low2)
	assert.Equal(t, high1, high2)
	assert.Less(t, low1.String(), high1.String())
}

func TestConnectionBeforeCreateFillsPairKey(t *testing.T) {
	requester, receiver := NewID(), NewID()
	c := &Connection{RequesterID: requester, ReceiverID: receiver}

	assert.NoError(t, c.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, requester, c.RequesterID)
	assert.Equal(t, receiver, c.ReceiverID)

	low, high := OrderedPair(requester, receiver)
	assert.Equal(t, low, c.PairLow)
	assert.Equal(t, high, c.PairHigh)
	assert.Equal(t, receiver, c.PeerOf(requester))
	assert.Equal(t, requester, c.PeerOf(receiver))
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		assert.Less(t, prev.String(), next.String())
		prev = next
	}
}
