package post

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/database/databasetest"
)

func createAccount(t *testing.T, conn *database.Conn, username string) int64 {
	var id int64

	err := conn.QueryRow(
		context.Background(),
		`insert into accounts (username, email, password_hash, cash, created_at)
		values ($1, $2, 'x', '0', $3) returning id`,
		username,
		username+"@example.com",
		time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)

	return id
}

// newTestStore returns a store whose clock moves forward a minute per post.
func newTestStore(t *testing.T) (*Store, *database.Conn) {
	conn := databasetest.New(t)
	store := NewStore(conn, zap.NewNop())
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	store.now = func() time.Time {
		clock = clock.Add(time.Minute)

		return clock
	}

	return store, conn
}

func TestCreateAndGet(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	aliceID := createAccount(t, conn, "alice")

	created, err := store.Create(ctx, aliceID, "hello board")
	require.NoError(t, err)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello board", loaded.Message)
	assert.Equal(t, aliceID, loaded.OwnerID)
	assert.Equal(t, "alice", loaded.OwnerUsername)
	assert.Equal(t, "no-img.png", loaded.OwnerAvatar)
	assert.True(t, created.PostedAt.Equal(loaded.PostedAt))

	_, err = store.Get(ctx, created.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerOnlyMutation(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	aliceID := createAccount(t, conn, "alice")
	bobID := createAccount(t, conn, "bob")

	post, err := store.Create(ctx, aliceID, "original")
	require.NoError(t, err)

	_, err = store.Update(ctx, bobID, post.ID, "hijacked")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, store.Delete(ctx, bobID, post.ID), ErrForbidden)

	unchanged, err := store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Message)

	updated, err := store.Update(ctx, aliceID, post.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)

	require.NoError(t, store.Delete(ctx, aliceID, post.ID))

	_, err = store.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, aliceID, post.ID, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, aliceID, post.ID), ErrNotFound)
}

func TestListPagination(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	aliceID := createAccount(t, conn, "alice")
	bobID := createAccount(t, conn, "bob")

	for i := 1; i <= 12; i++ {
		ownerID := aliceID

		if i%3 == 0 {
			ownerID = bobID
		}

		_, err := store.Create(ctx, ownerID, fmt.Sprintf("post %d", i))
		require.NoError(t, err)
	}

	first, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, first.Total)
	assert.Equal(t, 3, first.Pages())
	require.Len(t, first.Posts, PageSize)
	assert.Equal(t, "post 12", first.Posts[0].Message)
	assert.Equal(t, "post 8", first.Posts[4].Message)

	last, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, last.Posts, 2)
	assert.Equal(t, "post 2", last.Posts[0].Message)
	assert.Equal(t, "post 1", last.Posts[1].Message)

	_, err = store.List(ctx, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	clamped, err := store.List(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Page)

	bobs, err := store.ListByOwner(ctx, bobID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, bobs.Total)
	require.Len(t, bobs.Posts, 4)
	assert.Equal(t, "post 12", bobs.Posts[0].Message)

	for _, post := range bobs.Posts {
		assert.Equal(t, bobID, post.OwnerID)
	}
}

func TestListEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	page, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Equal(t, 0, page.Total)
}
