// Package quote looks up current stock prices.
package quote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/boardfolio/internal/model"
)

var (
	// ErrNotFound means the provider has no price for the symbol.
	ErrNotFound = errors.New("the requested stock was not found")
	// ErrUnavailable means the provider could not be reached or answered badly.
	ErrUnavailable = errors.New("quote service unavailable")
)

// Quoter looks up the current price of a stock symbol.
type Quoter interface {
	Lookup(ctx context.Context, symbol string) (*model.Quote, error)
}

// Normalize returns a symbol in the form used for lookups and storage.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Static is a fixed price list, for development and tests.
type Static struct {
	mutex  sync.RWMutex
	quotes map[string]model.Quote
	now    func() time.Time
}

// NewStatic creates a Static quoter from symbol to price strings.
func NewStatic(prices map[string]string) (*Static, error) {
	static := &Static{quotes: map[string]model.Quote{}, now: time.Now}

	for symbol, price := range prices {
		if err := static.Set(symbol, symbol, price); err != nil {
			return nil, err
		}
	}

	return static, nil
}

// DefaultStatic returns a small price list for running without an API key.
func DefaultStatic() *Static {
	static, _ := NewStatic(nil)

	for _, entry := range [][3]string{
		{"AAPL", "Apple Inc.", "189.84"},
		{"MSFT", "Microsoft Corporation", "415.50"},
		{"GOOG", "Alphabet Inc.", "141.80"},
		{"AMZN", "Amazon.com Inc.", "178.25"},
		{"NFLX", "Netflix Inc.", "610.55"},
	} {
		_ = static.Set(entry[0], entry[1], entry[2])
	}

	return static
}

// Set adds or replaces the price for a symbol.
func (static *Static) Set(symbol, name, price string) error {
	value, err := decimal.NewFromString(price)

	if err != nil {
		return err
	}

	symbol = Normalize(symbol)

	static.mutex.Lock()
	defer static.mutex.Unlock()

	static.quotes[symbol] = model.Quote{Symbol: symbol, Name: name, Price: value}

	return nil
}

// Remove deletes a symbol so later lookups fail.
func (static *Static) Remove(symbol string) {
	static.mutex.Lock()
	defer static.mutex.Unlock()

	delete(static.quotes, Normalize(symbol))
}

func (static *Static) Lookup(_ context.Context, symbol string) (*model.Quote, error) {
	static.mutex.RLock()
	found, ok := static.quotes[Normalize(symbol)]
	static.mutex.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	found.Time = static.now()

	return &found, nil
}
