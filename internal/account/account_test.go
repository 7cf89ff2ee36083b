package account

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dense-analysis/boardfolio/internal/database/databasetest"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/token"
)

func newTestStore(t *testing.T) *Store {
	store := NewStore(databasetest.New(t), decimal.RequireFromString("10000.00"), zap.NewNop())
	store.bcryptCost = bcrypt.MinCost

	return store
}

func TestCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, model.DefaultAvatar, user.Avatar)
	assert.True(t, decimal.RequireFromString("10000").Equal(user.Cash))
	assert.NotEqual(t, "secret", user.PasswordHash)

	loaded, err := store.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Username)
	assert.Equal(t, "alice@example.com", loaded.Email)
	assert.True(t, user.Cash.Equal(loaded.Cash))
	assert.Equal(t, int64(1), loaded.Version)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = store.Create(ctx, "alice", "other@example.com", "secret")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NotErrorIs(t, err, ErrEmailTaken)

	_, err = store.Create(ctx, "bob", "ALICE@example.com", "secret")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = store.Create(ctx, "Alice", "alice@example.com", "secret")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrEmailTaken)

	var count int
	require.NoError(t, store.conn.QueryRow(ctx, "select count(*) from accounts").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	user, err := store.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	user, err = store.Authenticate(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = store.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUsernameAvailable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	available, err := store.UsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = store.UsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = store.UsernameAvailable(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestUpdateProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)
	_, err = store.Create(ctx, "bob", "bob@example.com", "secret")
	require.NoError(t, err)

	// Keeping your own values is not a conflict.
	updated, err := store.UpdateProfile(ctx, alice.ID, "alice", "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultAvatar, updated.Avatar)

	updated, err = store.UpdateProfile(ctx, alice.ID, "alicia", "alicia@example.com", "face.png")
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "alicia@example.com", updated.Email)
	assert.Equal(t, "face.png", updated.Avatar)

	_, err = store.UpdateProfile(ctx, alice.ID, "bob", "alicia@example.com", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = store.UpdateProfile(ctx, alice.ID, "alicia", "bob@example.com", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = store.UpdateProfile(ctx, 9999, "ghost", "ghost@example.com", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, store.SetPassword(ctx, alice.ID, "changed"))

	_, err = store.Authenticate(ctx, "alice", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate(ctx, "alice", "changed")
	assert.NoError(t, err)

	assert.ErrorIs(t, store.SetPassword(ctx, 9999, "x"), ErrNotFound)
}

func TestResolveResetToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	issuer := token.NewIssuer("0123456789abcdef0123", time.Hour, zap.NewNop())

	alice, err := store.Create(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	tokenString, err := issuer.Issue(alice.ID)
	require.NoError(t, err)

	user, ok, err := store.ResolveResetToken(ctx, issuer, tokenString)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, alice.ID, user.ID)

	user, ok, err = store.ResolveResetToken(ctx, issuer, tokenString+"x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, user)

	ghostToken, err := issuer.Issue(alice.ID + 100)
	require.NoError(t, err)

	user, ok, err = store.ResolveResetToken(ctx, issuer, ghostToken)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, user)
}
