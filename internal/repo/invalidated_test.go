package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/db"
	"github.com/devteria/identity_service/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return &GormRepo{DB: gdb}
}

func TestGormRepo_RevokeToken_InsertIfAbsent(t *testing.T) {
	t.Parallel()

	rp := newTestRepo(t)
	ctx := context.Background()
	jti := uuid.NewString()
	expiry := time.Now().UTC().Add(time.Hour)

	inserted, err := rp.RevokeToken(ctx, jti, expiry)
	require.NoError(t, err)
	assert.True(t, inserted)

	// The second insert loses: the row is the linearization point.
	inserted, err = rp.RevokeToken(ctx, jti, expiry)
	require.NoError(t, err)
	assert.False(t, inserted)

	revoked, err := rp.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = rp.IsTokenRevoked(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestGormRepo_CreateUser_UniqueViolations(t *testing.T) {
	t.Parallel()

	rp := newTestRepo(t)
	ctx := context.Background()

	first := models.User{Username: "alice1234", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, rp.CreateUser(ctx, &first))

	dupUsername := models.User{Username: "alice1234", Email: "other@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, rp.CreateUser(ctx, &dupUsername), apperr.ErrUserExists)

	dupEmail := models.User{Username: "bobby5678", Email: "alice@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, rp.CreateUser(ctx, &dupEmail), apperr.ErrUserExists)
}

func TestGormRepo_PasswordHistory_AppendOnlyOrdering(t *testing.T) {
	t.Parallel()

	rp := newTestRepo(t)
	ctx := context.Background()

	user := models.User{Username: "alice1234", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, rp.CreateUser(ctx, &user))

	require.NoError(t, rp.AppendPasswordHistory(ctx, user.ID, "digest-1"))
	require.NoError(t, rp.AppendPasswordHistory(ctx, user.ID, "digest-2"))

	entries, err := rp.PasswordHistoryForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.False(t, entries[0].CreatedAt.Before(entries[1].CreatedAt))
}

func TestGormRepo_FindByVerificationCode(t *testing.T) {
	t.Parallel()

	rp := newTestRepo(t)
	ctx := context.Background()

	code := "123456"
	user := models.User{
		Username:         "alice1234",
		Email:            "alice@example.com",
		PasswordHash:     "x",
		VerificationCode: &code,
	}
	require.NoError(t, rp.CreateUser(ctx, &user))

	found, err := rp.FindByVerificationCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = rp.FindByVerificationCode(ctx, "123457")
	assert.ErrorIs(t, err, apperr.ErrInvalidVerificationCode)
}
