// Package ledger records stock trades against account cash balances.
//
// Every trade appends a row to the transactions table and moves the account
// cash in the same database transaction. The account row carries a version
// number which is checked on update, so two trades for the same account can
// never both spend the same cash or sell the same shares.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/quote"
)

var (
	ErrInvalidSymbol          = errors.New("invalid symbol")
	ErrInvalidShares          = errors.New("shares must be a positive whole number")
	ErrInsufficientFunds      = errors.New("not enough cash")
	ErrNotHeld                = errors.New("you do not own any shares of that stock")
	ErrInsufficientShares     = errors.New("you do not own that many shares")
	ErrQuoteUnavailable       = errors.New("quote unavailable")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrAccountNotFound        = errors.New("account not found")
	ErrReconcileMismatch      = errors.New("cash does not match transaction history")
)

// DefaultMaxAttempts is how many times a trade is tried when the account
// changes underneath it.
const DefaultMaxAttempts = 3

// lookupLimit caps concurrent quote lookups when valuing a portfolio.
const lookupLimit = 4

var errVersionConflict = errors.New("account version changed")

var transactionQuery = `
select
	id,
	user_id,
	symbol,
	name,
	shares,
	price,
	cost,
	transacted_at
from transactions
`

func scanTransaction(row database.Row, transaction *model.Transaction) error {
	return row.Scan(
		&transaction.ID,
		&transaction.UserID,
		&transaction.Symbol,
		&transaction.Name,
		&transaction.Shares,
		&transaction.Price,
		&transaction.Cost,
		&transaction.TransactedAt,
	)
}

func scanHolding(row database.Row, holding *model.Holding) error {
	return row.Scan(&holding.Symbol, &holding.Name, &holding.Shares)
}

type Ledger struct {
	conn        *database.Conn
	quotes      quote.Quoter
	seed        decimal.Decimal
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
	// beforeUpdate runs inside the trade transaction just before the cash
	// update. Tests use it to simulate a competing writer.
	beforeUpdate func(ctx context.Context, tx *database.Tx) error
}

// New creates a Ledger. seed is the balance every account started with.
func New(conn *database.Conn, quotes quote.Quoter, seed decimal.Decimal, logger *zap.Logger) *Ledger {
	return &Ledger{
		conn:        conn,
		quotes:      quotes,
		seed:        seed,
		maxAttempts: DefaultMaxAttempts,
		log:         logger,
		now:         time.Now,
	}
}

func normalizeTrade(symbol string, shares int64) (string, error) {
	symbol = quote.Normalize(symbol)

	if symbol == "" {
		return "", ErrInvalidSymbol
	}

	if shares < 1 {
		return "", ErrInvalidShares
	}

	return symbol, nil
}

func (ledger *Ledger) lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	found, err := ledger.quotes.Lookup(ctx, symbol)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}

	return found, nil
}

func heldShares(ctx context.Context, conn database.Queryable, userID int64, symbol string) (int64, error) {
	var held int64

	err := conn.QueryRow(
		ctx,
		"select cast(coalesce(sum(shares), 0) as bigint) from transactions where user_id = $1 and symbol = $2",
		userID,
		symbol,
	).Scan(&held)

	if err != nil {
		return 0, fmt.Errorf("load held shares: %w", err)
	}

	return held, nil
}

func checkHeld(held, shares int64) error {
	if held <= 0 {
		return ErrNotHeld
	}

	if shares > held {
		return ErrInsufficientShares
	}

	return nil
}

// Buy spends cash on shares of a stock at the current quoted price.
func (ledger *Ledger) Buy(ctx context.Context, userID int64, symbol string, shares int64) (*model.Transaction, error) {
	symbol, err := normalizeTrade(symbol, shares)

	if err != nil {
		return nil, err
	}

	found, err := ledger.lookup(ctx, symbol)

	if err != nil {
		return nil, err
	}

	entry := &model.Transaction{
		UserID: userID,
		Symbol: symbol,
		Name:   found.Name,
		Shares: shares,
		Price:  found.Price,
		Cost:   found.Price.Mul(decimal.NewFromInt(shares)),
	}

	err = ledger.apply(ctx, entry, func(_ context.Context, _ *database.Tx, cash decimal.Decimal) error {
		if cash.LessThan(entry.Cost) {
			return ErrInsufficientFunds
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Sell turns held shares of a stock into cash at the current quoted price.
func (ledger *Ledger) Sell(ctx context.Context, userID int64, symbol string, shares int64) (*model.Transaction, error) {
	symbol, err := normalizeTrade(symbol, shares)

	if err != nil {
		return nil, err
	}

	held, err := heldShares(ctx, ledger.conn, userID, symbol)

	if err != nil {
		return nil, err
	}

	if err := checkHeld(held, shares); err != nil {
		return nil, err
	}

	found, err := ledger.lookup(ctx, symbol)

	if err != nil {
		return nil, err
	}

	entry := &model.Transaction{
		UserID: userID,
		Symbol: symbol,
		Name:   found.Name,
		Shares: -shares,
		Price:  found.Price,
		Cost:   found.Price.Mul(decimal.NewFromInt(-shares)),
	}

	err = ledger.apply(ctx, entry, func(ctx context.Context, tx *database.Tx, _ decimal.Decimal) error {
		held, err := heldShares(ctx, tx, userID, symbol)

		if err != nil {
			return err
		}

		return checkHeld(held, shares)
	})

	if err != nil {
		return nil, err
	}

	return entry, nil
}

// apply records entry and takes its cost from the account cash.
//
// check runs inside the transaction after the account has been read, and
// can reject the trade. The whole transaction is retried if the account
// version changes before the update.
func (ledger *Ledger) apply(
	ctx context.Context,
	entry *model.Transaction,
	check func(ctx context.Context, tx *database.Tx, cash decimal.Decimal) error,
) error {
	for attempt := 1; attempt <= ledger.maxAttempts; attempt++ {
		var newCash decimal.Decimal

		err := ledger.conn.WithTx(ctx, func(tx *database.Tx) error {
			var cash decimal.Decimal
			var version int64

			err := tx.QueryRow(ctx, "select cash, version from accounts where id = $1", entry.UserID).Scan(&cash, &version)

			if err != nil {
				if errors.Is(err, database.ErrNoRows) {
					return ErrAccountNotFound
				}

				return fmt.Errorf("load account: %w", err)
			}

			if err := check(ctx, tx, cash); err != nil {
				return err
			}

			newCash = cash.Sub(entry.Cost)
			entry.TransactedAt = ledger.now().UTC()

			err = tx.QueryRow(
				ctx,
				`insert into transactions
					(user_id, symbol, name, shares, price, cost, transacted_at)
				values ($1, $2, $3, $4, $5, $6, $7)
				returning id`,
				entry.UserID,
				entry.Symbol,
				entry.Name,
				entry.Shares,
				entry.Price,
				entry.Cost,
				entry.TransactedAt,
			).Scan(&entry.ID)

			if err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}

			if ledger.beforeUpdate != nil {
				if err := ledger.beforeUpdate(ctx, tx); err != nil {
					return err
				}
			}

			affected, err := tx.Exec(
				ctx,
				"update accounts set cash = $1, version = version + 1 where id = $2 and version = $3",
				newCash,
				entry.UserID,
				version,
			)

			if err != nil {
				return fmt.Errorf("update cash: %w", err)
			}

			if affected == 0 {
				return errVersionConflict
			}

			return nil
		})

		if errors.Is(err, errVersionConflict) {
			ledger.log.Warn(
				"Account changed during trade, retrying",
				zap.Int64("user_id", entry.UserID),
				zap.String("symbol", entry.Symbol),
				zap.Int("attempt", attempt),
			)

			continue
		}

		if err != nil {
			return err
		}

		ledger.log.Info(
			"Trade recorded",
			zap.Int64("transaction_id", entry.ID),
			zap.Int64("user_id", entry.UserID),
			zap.String("symbol", entry.Symbol),
			zap.Int64("shares", entry.Shares),
			zap.String("price", entry.Price.String()),
			zap.String("new_cash", newCash.String()),
		)

		return nil
	}

	ledger.log.Error(
		"Trade abandoned after repeated conflicts",
		zap.Int64("user_id", entry.UserID),
		zap.String("symbol", entry.Symbol),
	)

	return ErrConcurrentModification
}

// Cash returns the current cash balance of an account.
func (ledger *Ledger) Cash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var cash decimal.Decimal

	if err := ledger.conn.QueryRow(ctx, "select cash from accounts where id = $1", userID).Scan(&cash); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}

		return decimal.Zero, err
	}

	return cash, nil
}

// Holdings returns the symbols with a positive number of shares held.
func (ledger *Ledger) Holdings(ctx context.Context, userID int64) ([]model.Holding, error) {
	var holdings []model.Holding

	err := model.LoadList(
		ctx,
		ledger.conn,
		&holdings,
		8,
		scanHolding,
		`select symbol, max(name), cast(sum(shares) as bigint)
		from transactions
		where user_id = $1
		group by symbol
		having sum(shares) > 0
		order by symbol`,
		userID,
	)

	return holdings, err
}

// HeldSymbols returns every symbol that any account holds shares of.
func (ledger *Ledger) HeldSymbols(ctx context.Context) ([]string, error) {
	var symbols []string

	err := model.LoadList(
		ctx,
		ledger.conn,
		&symbols,
		16,
		func(row database.Row, symbol *string) error { return row.Scan(symbol) },
		`select symbol
		from (
			select symbol, sum(shares) as held
			from transactions
			group by user_id, symbol
		) as positions
		where held > 0
		group by symbol
		order by symbol`,
	)

	return symbols, err
}

// History returns every transaction for an account, newest first.
func (ledger *Ledger) History(ctx context.Context, userID int64) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := model.LoadList(
		ctx,
		ledger.conn,
		&transactions,
		16,
		scanTransaction,
		transactionQuery+"where user_id = $1 order by transacted_at desc, id desc",
		userID,
	)

	return transactions, err
}

// Portfolio values the holdings of an account at current prices.
//
// Holdings which can't be priced are left out of the total and listed in
// Unpriced instead of failing the whole view.
func (ledger *Ledger) Portfolio(ctx context.Context, userID int64) (*model.Portfolio, error) {
	cash, err := ledger.Cash(ctx, userID)

	if err != nil {
		return nil, err
	}

	holdings, err := ledger.Holdings(ctx, userID)

	if err != nil {
		return nil, err
	}

	var group errgroup.Group
	group.SetLimit(lookupLimit)

	for i := range holdings {
		holding := &holdings[i]

		group.Go(func() error {
			found, err := ledger.quotes.Lookup(ctx, holding.Symbol)

			if err != nil {
				ledger.log.Warn(
					"Could not price holding",
					zap.Int64("user_id", userID),
					zap.String("symbol", holding.Symbol),
					zap.Error(err),
				)

				return nil
			}

			if found.Name != "" {
				holding.Name = found.Name
			}

			holding.Price = found.Price
			holding.Value = found.Price.Mul(decimal.NewFromInt(holding.Shares))
			holding.Priced = true

			return nil
		})
	}

	_ = group.Wait()

	portfolio := &model.Portfolio{Cash: cash, Holdings: holdings, Total: cash}

	for _, holding := range holdings {
		if holding.Priced {
			portfolio.Total = portfolio.Total.Add(holding.Value)
		} else {
			portfolio.Unpriced = append(portfolio.Unpriced, holding.Symbol)
		}
	}

	return portfolio, nil
}

// Reconcile checks the account cash equals the seed balance less the cost
// of every recorded transaction.
func (ledger *Ledger) Reconcile(ctx context.Context, userID int64) error {
	cash, err := ledger.Cash(ctx, userID)

	if err != nil {
		return err
	}

	rows, err := ledger.conn.Query(ctx, "select cost from transactions where user_id = $1", userID)

	if err != nil {
		return err
	}

	defer rows.Close()

	spent := decimal.Zero

	for rows.Next() {
		var cost decimal.Decimal

		if err := rows.Scan(&cost); err != nil {
			return err
		}

		spent = spent.Add(cost)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	expected := ledger.seed.Sub(spent)

	if !cash.Equal(expected) {
		ledger.log.Error(
			"Cash reconciliation failed",
			zap.Int64("user_id", userID),
			zap.String("cash", cash.String()),
			zap.String("expected", expected.String()),
		)

		return fmt.Errorf("%w: cash=%s expected=%s", ErrReconcileMismatch, cash, expected)
	}

	return nil
}
