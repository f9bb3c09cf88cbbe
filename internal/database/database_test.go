package database_test

import (
	"testing"

	"socialnet/backend/internal/database"
	"socialnet/backend/internal/models"
	"socialnet/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db := testutil.OpenDB(t)

	require.NoError(t, database.Migrate(db))
	assert.True(t, db.Migrator().HasTable(&models.Connection{}))
	assert.True(t, db.Migrator().HasIndex(&models.Connection{}, "idx_connections_pair"))
}

func TestUnorderedPairIsUnique(t *testing.T) {
	db := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, db.Create(&models.Connection{RequesterID: alice.ID, ReceiverID: bob.ID}).Error)

	err := db.Create(&models.Connection{RequesterID: bob.ID, ReceiverID: alice.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDuplicateEmailIsTranslated(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.CreateUser(t, db, "alice")

	err := db.Create(&models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
