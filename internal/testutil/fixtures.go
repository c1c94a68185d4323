// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/couchers-org/couchers-backend/internal/database"
	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory sqlite database private to the test.
// Extra models (for example plugin models) are migrated too.
func OpenDB(t *testing.T, extra ...interface{}) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(dsn, &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.MigrateModels(db, extra))
	return db
}

type UserOption func(*models.User)

func Invisible() UserOption {
	return func(u *models.User) { u.IsInvisible = true }
}

func Banned() UserOption {
	return func(u *models.User) { u.IsBanned = true }
}

func Deleted() UserOption {
	return func(u *models.User) { u.IsDeleted = true }
}

func Superuser() UserOption {
	return func(u *models.User) { u.IsSuperuser = true }
}

func WithUsername(username string) UserOption {
	return func(u *models.User) { u.Username = username }
}

func WithGender(gender string) UserOption {
	return func(u *models.User) { u.Gender = gender }
}

func JoinedAt(ts time.Time) UserOption {
	return func(u *models.User) { u.Joined = ts }
}

// GenerateUser inserts a user with unique username and email.
func GenerateUser(t *testing.T, db *gorm.DB, opts ...UserOption) *models.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username: "user_" + suffix,
		Email:    suffix + "@couchers.org.invalid",
		Name:     "Test User " + suffix,
		Gender:   "Woman",
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// MakeFriends stores an accepted relationship from one user to the other.
func MakeFriends(t *testing.T, db *gorm.DB, from, to *models.User) *models.FriendRelationship {
	t.Helper()

	now := time.Now().UTC()
	rel := &models.FriendRelationship{
		FromUserID:    from.ID,
		ToUserID:      to.ID,
		Status:        models.FriendStatusAccepted,
		TimeResponded: &now,
	}
	require.NoError(t, db.Create(rel).Error)
	return rel
}

func MakeUserBlock(t *testing.T, db *gorm.DB, blocker, blocked *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserBlock{BlockerID: blocker.ID, BlockedID: blocked.ID}).Error)
}

func MakeUserInvisible(t *testing.T, db *gorm.DB, userID uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Update("is_invisible", true).Error)
}
