package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/auth"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
)

func setupAuthService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&identity.User{}))

	return NewAuthService(
		persistence.NewGormUserRepository(db),
		auth.NewMemorySessionStore(),
		12*time.Hour,
		zap.NewNop(),
	)
}

func TestLoginAndLogout(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "maria", "correct horse", identity.RoleAdmin)
	require.NoError(t, err)

	session, err := svc.Login(ctx, "maria", "correct horse")
	require.NoError(t, err)
	assert.Len(t, session.Token, 64)
	assert.Equal(t, identity.RoleAdmin, session.Role)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), session.ExpiresAt, time.Minute)

	fetched, err := svc.SessionByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "maria", fetched.Username)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = svc.SessionByToken(ctx, session.Token)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// logging out twice is harmless
	assert.NoError(t, svc.Logout(ctx, session.Token))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "maria", "correct horse", identity.RoleViewer)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "maria", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "", "pw", identity.RoleViewer)
	assert.Error(t, err)

	_, err = svc.CreateUser(ctx, "maria", "pw", identity.Role("owner"))
	assert.Error(t, err)

	_, err = svc.CreateUser(ctx, "maria", "pw", identity.RoleViewer)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "maria", "pw2", identity.RoleViewer)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "bootstrap"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "different"))

	// the original password still works
	_, err := svc.Login(ctx, "admin", "bootstrap")
	assert.NoError(t, err)
}
