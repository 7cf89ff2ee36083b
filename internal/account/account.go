// Package account stores user accounts and checks their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/token"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid username/password")
)

var accountQuery = `
select
	id,
	username,
	email,
	password_hash,
	avatar,
	cash,
	version,
	created_at
from accounts
`

func scanUser(row database.Row, user *model.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.Cash,
		&user.Version,
		&user.CreatedAt,
	)
}

// Store reads and writes accounts.
type Store struct {
	conn       *database.Conn
	seed       decimal.Decimal
	bcryptCost int
	log        *zap.Logger
	now        func() time.Time
}

// NewStore creates a store which opens accounts with a seed cash balance.
func NewStore(conn *database.Conn, seed decimal.Decimal, logger *zap.Logger) *Store {
	return &Store{
		conn:       conn,
		seed:       seed,
		bcryptCost: bcrypt.DefaultCost,
		log:        logger,
		now:        time.Now,
	}
}

// SeedBalance returns the cash new accounts start with.
func (store *Store) SeedBalance() decimal.Decimal {
	return store.seed
}

func (store *Store) hash(password string) (string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), store.bcryptCost)

	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(passwordHash), nil
}

// checkTaken returns ErrUsernameTaken or ErrEmailTaken if another account
// already uses the username or email.
func (store *Store) checkTaken(ctx context.Context, exceptID int64, username, email string) error {
	var errs []error
	var id int64

	err := store.conn.QueryRow(
		ctx,
		"select id from accounts where lower(username) = lower($1) and id <> $2",
		username,
		exceptID,
	).Scan(&id)

	if err == nil {
		errs = append(errs, ErrUsernameTaken)
	} else if !errors.Is(err, database.ErrNoRows) {
		return err
	}

	err = store.conn.QueryRow(
		ctx,
		"select id from accounts where lower(email) = lower($1) and id <> $2",
		email,
		exceptID,
	).Scan(&id)

	if err == nil {
		errs = append(errs, ErrEmailTaken)
	} else if !errors.Is(err, database.ErrNoRows) {
		return err
	}

	return errors.Join(errs...)
}

// Create registers a new account with the seed cash balance.
//
// The returned error matches ErrUsernameTaken and/or ErrEmailTaken when
// those values are already registered.
func (store *Store) Create(ctx context.Context, username, email, password string) (*model.User, error) {
	if err := store.checkTaken(ctx, 0, username, email); err != nil {
		return nil, err
	}

	passwordHash, err := store.hash(password)

	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       model.DefaultAvatar,
		Cash:         store.seed,
		Version:      1,
		CreatedAt:    store.now().UTC(),
	}

	err = store.conn.QueryRow(
		ctx,
		`insert into accounts
			(username, email, password_hash, avatar, cash, version, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.Cash,
		user.Version,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race with another registration.
			if takenErr := store.checkTaken(ctx, 0, username, email); takenErr != nil {
				return nil, takenErr
			}

			return nil, ErrUsernameTaken
		}

		return nil, fmt.Errorf("insert account: %w", err)
	}

	store.log.Info("Created account", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	return user, nil
}

func (store *Store) loadOne(ctx context.Context, where string, argument any) (*model.User, error) {
	user := &model.User{}

	if err := scanUser(store.conn.QueryRow(ctx, accountQuery+where, argument), user); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return user, nil
}

// ByID loads an account by its ID.
func (store *Store) ByID(ctx context.Context, id int64) (*model.User, error) {
	return store.loadOne(ctx, "where id = $1", id)
}

// ByUsername loads an account by username, ignoring case.
func (store *Store) ByUsername(ctx context.Context, username string) (*model.User, error) {
	return store.loadOne(ctx, "where lower(username) = lower($1)", username)
}

// ByEmail loads an account by email, ignoring case.
func (store *Store) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return store.loadOne(ctx, "where lower(email) = lower($1)", email)
}

// UsernameAvailable returns true if no account uses the username.
func (store *Store) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return false, nil
	}

	_, err := store.ByUsername(ctx, username)

	if errors.Is(err, ErrNotFound) {
		return true, nil
	}

	return false, err
}

// Authenticate checks a password for an account found by username or email.
func (store *Store) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	var user *model.User
	var err error

	if strings.Contains(login, "@") {
		user, err = store.ByEmail(ctx, login)
	} else {
		user, err = store.ByUsername(ctx, login)
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// UpdateProfile changes the username, email and optionally the avatar.
//
// An empty avatar leaves the current image in place.
func (store *Store) UpdateProfile(ctx context.Context, id int64, username, email, avatar string) (*model.User, error) {
	if err := store.checkTaken(ctx, id, username, email); err != nil {
		return nil, err
	}

	var affected int64
	var err error

	if avatar == "" {
		affected, err = store.conn.Exec(
			ctx,
			"update accounts set username = $1, email = $2 where id = $3",
			username,
			email,
			id,
		)
	} else {
		affected, err = store.conn.Exec(
			ctx,
			"update accounts set username = $1, email = $2, avatar = $3 where id = $4",
			username,
			email,
			avatar,
			id,
		)
	}

	if err != nil {
		if database.IsUniqueViolation(err) {
			if takenErr := store.checkTaken(ctx, id, username, email); takenErr != nil {
				return nil, takenErr
			}
		}

		return nil, fmt.Errorf("update profile: %w", err)
	}

	if affected == 0 {
		return nil, ErrNotFound
	}

	return store.ByID(ctx, id)
}

// SetPassword replaces the password for an account.
func (store *Store) SetPassword(ctx context.Context, id int64, password string) error {
	passwordHash, err := store.hash(password)

	if err != nil {
		return err
	}

	affected, err := store.conn.Exec(
		ctx,
		"update accounts set password_hash = $1 where id = $2",
		passwordHash,
		id,
	)

	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	store.log.Info("Password changed", zap.Int64("user_id", id))

	return nil
}

// ResolveResetToken finds the account a reset token was issued for.
//
// Bad or expired tokens and deleted accounts return false with no error.
func (store *Store) ResolveResetToken(ctx context.Context, issuer *token.Issuer, tokenString string) (*model.User, bool, error) {
	userID, ok := issuer.Verify(tokenString)

	if !ok {
		return nil, false, nil
	}

	user, err := store.ByID(ctx, userID)

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return user, true, nil
}
