package connection_test

import (
	"context"
	"sync"
	"testing"

	"socialnet/backend/internal/apperr"
	"socialnet/backend/internal/connection"
	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/models"
	"socialnet/backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	manager *connection.Manager
	alice   *models.User
	bob     *models.User
	carol   *models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	return &fixture{
		db:      db,
		manager: connection.NewManager(db, identity.NewStore(db)).WithClock(testutil.NewClock().Now),
		alice:   testutil.CreateUser(t, db, "alice"),
		bob:     testutil.CreateUser(t, db, "bob"),
		carol:   testutil.CreateUser(t, db, "carol"),
	}
}

func (f *fixture) status(t *testing.T, id uuid.UUID) models.ConnectionStatus {
	t.Helper()
	var c models.Connection
	require.NoError(t, f.db.First(&c, "id = ?", id).Error)
	return c.Status
}

func TestRequestCreatesPendingConnection(t *testing.T) {
	f := setup(t)

	c, err := f.manager.Request(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	assert.Equal(t, f.alice.ID, c.RequesterID)
	assert.Equal(t, f.bob.ID, c.ReceiverID)
	assert.Equal(t, models.ConnectionPending, c.Status)
	assert.Equal(t, models.ConnectionPending, f.status(t, c.ID))
}

func TestRequestValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.manager.Request(ctx, f.alice.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = f.manager.Request(ctx, f.alice.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestRequestConflictsForUnorderedPair(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = f.manager.Request(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	var count int64
	require.NoError(t, f.db.Model(&models.Connection{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRequestAfterRejectionConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.manager.Respond(ctx, c.ID, f.bob.ID, connection.Reject)
	require.NoError(t, err)

	_, err = f.manager.Request(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestConcurrentRequestsCreateOneConnection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]uuid.UUID{{f.alice.ID, f.bob.ID}, {f.bob.ID, f.alice.ID}} {
		wg.Add(1)
		go func(i int, requester, receiver uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.manager.Request(ctx, requester, receiver)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, apperr.Is(err, apperr.Conflict), err)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	var count int64
	require.NoError(t, f.db.Model(&models.Connection{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRequestLosingInsertRaceConflicts(t *testing.T) {
	f := setup(t)

	// the mirror request lands between the existence check and the insert
	inserted := false
	err := f.db.Callback().Create().Before("gorm:create").Register("test:mirror_request", func(tx *gorm.DB) {
		c, ok := tx.Statement.Dest.(*models.Connection)
		if !ok || inserted {
			return
		}
		inserted = true
		mirror := &models.Connection{RequesterID: c.ReceiverID, ReceiverID: c.RequesterID, Status: models.ConnectionPending}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(mirror).Error)
	})
	require.NoError(t, err)

	_, err = f.manager.Request(context.Background(), f.alice.ID, f.bob.ID)
	require.Error(t, err)
	assert.True(t, inserted)
	assert.True(t, apperr.Is(err, apperr.Conflict), err)
	assert.Equal(t, "Connection already exists", apperr.Message(err))
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name     string
		decision connection.Decision
		want     models.ConnectionStatus
	}{
		{"accept", connection.Accept, models.ConnectionAccepted},
		{"reject", connection.Reject, models.ConnectionRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			c, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
			require.NoError(t, err)

			updated, err := f.manager.Respond(ctx, c.ID, f.bob.ID, tt.decision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, updated.Status)
			assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))
			assert.Equal(t, tt.want, f.status(t, c.ID))
		})
	}
}

func TestRespondOnlyByReceiverWhilePending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.manager.Respond(ctx, c.ID, f.alice.ID, connection.Accept)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Equal(t, models.ConnectionPending, f.status(t, c.ID))

	_, err = f.manager.Respond(ctx, c.ID, f.carol.ID, connection.Accept)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.manager.Respond(ctx, uuid.New(), f.bob.ID, connection.Accept)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.manager.Respond(ctx, c.ID, f.bob.ID, connection.Accept)
	require.NoError(t, err)

	_, err = f.manager.Respond(ctx, c.ID, f.bob.ID, connection.Reject)
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Equal(t, models.ConnectionAccepted, f.status(t, c.ID))

	_, err = f.manager.Respond(ctx, c.ID, f.bob.ID, connection.Decision("maybe"))
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestAreConnected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	connected, err := f.manager.AreConnected(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, connected, "pending is not connected")

	_, err = f.manager.Respond(ctx, c.ID, f.bob.ID, connection.Accept)
	require.NoError(t, err)

	for _, pair := range [][2]uuid.UUID{{f.alice.ID, f.bob.ID}, {f.bob.ID, f.alice.ID}} {
		connected, err = f.manager.AreConnected(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, connected)
	}

	connected, err = f.manager.AreConnected(ctx, f.alice.ID, f.carol.ID)
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestListAcceptedReturnsPeerRegardlessOfRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ab, err := f.manager.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.manager.Respond(ctx, ab.ID, f.bob.ID, connection.Accept)
	require.NoError(t, err)

	ca, err := f.manager.Request(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.manager.Respond(ctx, ca.ID, f.alice.ID, connection.Accept)
	require.NoError(t, err)

	peers, err := f.manager.ListAccepted(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, ca.ID, peers[0].ConnectionID)
	assert.Equal(t, "carol", peers[0].User.Username)
	assert.Equal(t, ab.ID, peers[1].ConnectionID)
	assert.Equal(t, "bob", peers[1].User.Username)

	peers, err = f.manager.ListAccepted(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "alice", peers[0].User.Username)
}

func TestListPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.manager.Request(ctx, f.alice.ID, f.carol.ID)
	require.NoError(t, err)
	_, err = f.manager.Request(ctx, f.bob.ID, f.carol.ID)
	require.NoError(t, err)

	pending, err := f.manager.ListPending(ctx, f.carol.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "bob", pending[0].Requester.Username)
	assert.Equal(t, "alice", pending[1].Requester.Username)

	pending, err = f.manager.ListPending(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStatuses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.manager.Request(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	statuses, err := f.manager.Statuses(ctx, f.alice.ID, []uuid.UUID{f.bob.ID, f.carol.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]models.ConnectionStatus{f.bob.ID: models.ConnectionPending}, statuses)
}
