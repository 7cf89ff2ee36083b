// Package post stores the messages users post on the board.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/model"
)

// PageSize is the number of posts listed per page.
const PageSize = 5

var (
	ErrNotFound       = errors.New("post not found")
	ErrForbidden      = errors.New("post belongs to another user")
	ErrPageOutOfRange = errors.New("page out of range")
)

var postQuery = `
select
	posts.id,
	posts.message,
	posts.posted_at,
	posts.owner_id,
	accounts.username,
	accounts.avatar
from posts
inner join accounts
on accounts.id = posts.owner_id
`

func scanPost(row database.Row, post *model.Post) error {
	return row.Scan(
		&post.ID,
		&post.Message,
		&post.PostedAt,
		&post.OwnerID,
		&post.OwnerUsername,
		&post.OwnerAvatar,
	)
}

type Store struct {
	conn *database.Conn
	log  *zap.Logger
	now  func() time.Time
}

func NewStore(conn *database.Conn, logger *zap.Logger) *Store {
	return &Store{conn: conn, log: logger, now: time.Now}
}

// Create saves a new post for its owner.
func (store *Store) Create(ctx context.Context, ownerID int64, message string) (*model.Post, error) {
	post := &model.Post{
		Message:  message,
		PostedAt: store.now().UTC(),
		OwnerID:  ownerID,
	}

	err := store.conn.QueryRow(
		ctx,
		"insert into posts (message, posted_at, owner_id) values ($1, $2, $3) returning id",
		post.Message,
		post.PostedAt,
		post.OwnerID,
	).Scan(&post.ID)

	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	store.log.Info("Created post", zap.Int64("post_id", post.ID), zap.Int64("owner_id", ownerID))

	return post, nil
}

// Get loads a single post with its owner.
func (store *Store) Get(ctx context.Context, id int64) (*model.Post, error) {
	post := &model.Post{}

	if err := scanPost(store.conn.QueryRow(ctx, postQuery+"where posts.id = $1", id), post); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return post, nil
}

// checkOwner returns ErrForbidden unless actorID owns the post.
func checkOwner(ctx context.Context, tx *database.Tx, actorID, id int64) error {
	var ownerID int64

	if err := tx.QueryRow(ctx, "select owner_id from posts where id = $1", id).Scan(&ownerID); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return ErrNotFound
		}

		return err
	}

	if ownerID != actorID {
		return ErrForbidden
	}

	return nil
}

// Update changes the message of a post owned by actorID.
func (store *Store) Update(ctx context.Context, actorID, id int64, message string) (*model.Post, error) {
	err := store.conn.WithTx(ctx, func(tx *database.Tx) error {
		if err := checkOwner(ctx, tx, actorID, id); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, "update posts set message = $1 where id = $2", message, id)

		return err
	})

	if err != nil {
		if errors.Is(err, ErrForbidden) {
			store.log.Warn("Refused post update", zap.Int64("post_id", id), zap.Int64("actor_id", actorID))
		}

		return nil, err
	}

	return store.Get(ctx, id)
}

// Delete removes a post owned by actorID.
func (store *Store) Delete(ctx context.Context, actorID, id int64) error {
	err := store.conn.WithTx(ctx, func(tx *database.Tx) error {
		if err := checkOwner(ctx, tx, actorID, id); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, "delete from posts where id = $1", id)

		return err
	})

	if err != nil {
		if errors.Is(err, ErrForbidden) {
			store.log.Warn("Refused post delete", zap.Int64("post_id", id), zap.Int64("actor_id", actorID))
		}

		return err
	}

	store.log.Info("Deleted post", zap.Int64("post_id", id), zap.Int64("owner_id", actorID))

	return nil
}

func (store *Store) loadPage(ctx context.Context, page int, where string, arguments ...any) (*model.PostPage, error) {
	if page < 1 {
		page = 1
	}

	result := &model.PostPage{Page: page, PageSize: PageSize}

	err := store.conn.QueryRow(
		ctx,
		"select count(*) from posts "+where,
		arguments...,
	).Scan(&result.Total)

	if err != nil {
		return nil, err
	}

	limitArgument := len(arguments) + 1
	pageArguments := append(arguments, PageSize, (page-1)*PageSize)

	err = model.LoadList(
		ctx,
		store.conn,
		&result.Posts,
		PageSize,
		scanPost,
		postQuery+where+fmt.Sprintf(
			" order by posts.posted_at desc, posts.id desc limit $%d offset $%d",
			limitArgument,
			limitArgument+1,
		),
		pageArguments...,
	)

	if err != nil {
		return nil, err
	}

	if len(result.Posts) == 0 && page != 1 {
		return nil, ErrPageOutOfRange
	}

	return result, nil
}

// List returns a page of all posts, newest first.
func (store *Store) List(ctx context.Context, page int) (*model.PostPage, error) {
	return store.loadPage(ctx, page, "")
}

// ListByOwner returns a page of the posts by one user, newest first.
func (store *Store) ListByOwner(ctx context.Context, ownerID int64, page int) (*model.PostPage, error) {
	return store.loadPage(ctx, page, "where posts.owner_id = $1", ownerID)
}
