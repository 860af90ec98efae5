package service

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
	"github.com/devteria/identity_service/internal/hash"
	"github.com/devteria/identity_service/internal/models"
	"github.com/devteria/identity_service/internal/repo"
	"github.com/devteria/identity_service/internal/tokens"
)

type testEnv struct {
	db      *gorm.DB
	rp      *repo.GormRepo
	auth    *AuthService
	account *AccountService
	mail    *fakeSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	rp := &repo.GormRepo{DB: gdb}
	auth := &AuthService{
		Repo:                rp,
		Codec:               &tokens.Codec{Key: []byte("test-signer-key-needs-to-be-long-enough-for-hs512")},
		ValidDuration:       time.Hour,
		RefreshableDuration: 10 * time.Hour,
	}
	sender := &fakeSender{}
	account := &AccountService{Repo: rp, Auth: auth, Mail: sender}

	return &testEnv{db: gdb, rp: rp, auth: auth, account: account, mail: sender}
}

func (env *testEnv) createUser(t *testing.T, username, password string, verified bool, roleNames ...string) *models.User {
	t.Helper()

	digest, err := hash.HashPassword(password)
	require.NoError(t, err)

	var roles []models.Role
	for _, name := range roleNames {
		role := models.Role{Name: name}
		require.NoError(t, env.db.FirstOrCreate(&role, models.Role{Name: name}).Error)
		roles = append(roles, role)
	}

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: digest,
		IsVerified:   verified,
		Roles:        roles,
	}
	require.NoError(t, env.rp.CreateUser(context.Background(), &user))
	return &user
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true, "USER")

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Authenticated)
	require.NotEmpty(t, res.Token)

	claims, err := env.auth.Codec.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice1234", claims.Subject)
	assert.Equal(t, "ROLE_USER", claims.Scope)
	assert.Equal(t, tokens.Issuer, claims.Issuer)
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createUser(t, "alice1234", "Passw0rd", true)

	res, err := env.auth.Authenticate(context.Background(), "alice1234", "wrongpw1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	res, err := env.auth.Authenticate(context.Background(), "nouser99", "whatever1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestAuthService_Authenticate_UsernameCaseInsensitive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createUser(t, "Alice1234", "Passw0rd", true)

	res, err := env.auth.Authenticate(context.Background(), "alice1234", "Passw0rd")
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
}

func TestAuthService_Introspect_NeverErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true, "USER")

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)

	assert.True(t, env.auth.Introspect(ctx, res.Token))

	// Tampered signature.
	assert.False(t, env.auth.Introspect(ctx, res.Token[:len(res.Token)-4]+"AAAA"))

	// Garbage.
	assert.False(t, env.auth.Introspect(ctx, "not-a-token"))

	// Expired.
	expired, _, err := env.auth.Codec.Issue("alice1234", "", time.Now().UTC().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.False(t, env.auth.Introspect(ctx, expired))

	// Revoked.
	require.NoError(t, env.auth.Logout(ctx, res.Token))
	assert.False(t, env.auth.Introspect(ctx, res.Token))
}

func TestAuthService_Logout_RevokesToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true)

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, res.Token))

	_, err = env.auth.VerifyToken(ctx, res.Token, false)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = env.auth.VerifyToken(ctx, res.Token, true)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthService_Logout_InvalidToken_SilentNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.Logout(ctx, "not-a-token"))

	// A token past its refresh window needs no revocation either.
	expired, _, err := env.auth.Codec.Issue("alice1234", "", time.Now().UTC().Add(-11*time.Hour), time.Hour)
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx, expired))
}

func TestAuthService_Logout_AcceptsExpiredAccessToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true)

	// exp passed, but still inside the refresh window: logout must revoke.
	raw, claims, err := env.auth.Codec.Issue("alice1234", "", time.Now().UTC().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, raw))

	revoked, err := env.rp.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true, "USER")

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)
	oldClaims, err := env.auth.Codec.Parse(res.Token)
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, res.Token, refreshed.Token)

	newClaims, err := env.auth.Codec.Parse(refreshed.Token)
	require.NoError(t, err)
	assert.NotEqual(t, oldClaims.ID, newClaims.ID)
	assert.Equal(t, "alice1234", newClaims.Subject)

	// The consumed token is revoked regardless of its remaining validity.
	revoked, err := env.rp.IsTokenRevoked(ctx, oldClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_Refresh_SingleUse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true)

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, res.Token)
	require.NoError(t, err)

	again, err := env.auth.Refresh(ctx, res.Token)
	require.Error(t, err)
	assert.Nil(t, again)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthService_Refresh_ExpiredAccessTokenStillRefreshable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true, "USER")

	// The refresh window runs from issuedAt, independent of exp.
	raw, _, err := env.auth.Codec.Issue("alice1234", "ROLE_USER", time.Now().UTC().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, raw)
	require.NoError(t, err)
	assert.True(t, refreshed.Authenticated)
}

func TestAuthService_Refresh_OutsideWindow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice1234", "Passw0rd", true)

	raw, _, err := env.auth.Codec.Issue("alice1234", "", time.Now().UTC().Add(-11*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthService_Refresh_DeletedUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice1234", "Passw0rd", true)

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)

	require.NoError(t, env.rp.DeleteUser(ctx, user.ID))

	_, err = env.auth.Refresh(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthService_Refresh_RecomputesScope(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice1234", "Passw0rd", true, "USER")

	res, err := env.auth.Authenticate(ctx, "alice1234", "Passw0rd")
	require.NoError(t, err)

	// Grant ADMIN after issuance; the refreshed token must reflect it.
	admin := models.Role{Name: "ADMIN"}
	require.NoError(t, env.db.FirstOrCreate(&admin, models.Role{Name: "ADMIN"}).Error)
	require.NoError(t, env.rp.ReplaceRoles(ctx, user, []models.Role{admin}))

	refreshed, err := env.auth.Refresh(ctx, res.Token)
	require.NoError(t, err)

	claims, err := env.auth.Codec.Parse(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, "ROLE_ADMIN", claims.Scope)
}

func TestBuildScope_OrderAndDuplicates(t *testing.T) {
	t.Parallel()

	user := &models.User{
		Roles: []models.Role{
			{
				Name: "ADMIN",
				Permissions: []models.Permission{
					{Name: "CREATE_DATA"},
					{Name: "DELETE_DATA"},
				},
			},
			{
				Name:        "USER",
				Permissions: []models.Permission{{Name: "CREATE_DATA"}},
			},
		},
	}

	// Duplicates across roles are preserved as-is.
	assert.Equal(t, "ROLE_ADMIN CREATE_DATA DELETE_DATA ROLE_USER CREATE_DATA", BuildScope(user))
	assert.Equal(t, "", BuildScope(&models.User{}))
}
