package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAvatar is the image shown for accounts without an upload.
const DefaultAvatar = "no-img.png"

// User represents an account in the database
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	Cash         decimal.Decimal
	Version      int64
	CreatedAt    time.Time
}

// Post represents a message posted by a user
type Post struct {
	ID       int64
	Message  string
	PostedAt time.Time
	OwnerID  int64
	// Owner details are joined in when posts are loaded.
	OwnerUsername string
	OwnerAvatar   string
}

// PostPage is one page of posts, newest first
type PostPage struct {
	Posts    []Post
	Page     int
	PageSize int
	Total    int
}

// Pages returns the number of pages available.
func (page *PostPage) Pages() int {
	if page.Total == 0 || page.PageSize <= 0 {
		return 1
	}

	return (page.Total + page.PageSize - 1) / page.PageSize
}

func (page *PostPage) HasPrev() bool {
	return page.Page > 1
}

func (page *PostPage) HasNext() bool {
	return page.Page < page.Pages()
}

func (page *PostPage) PrevPage() int {
	return page.Page - 1
}

func (page *PostPage) NextPage() int {
	return page.Page + 1
}

// Numbers lists every page number, for pagination links.
func (page *PostPage) Numbers() []int {
	numbers := make([]int, page.Pages())

	for i := range numbers {
		numbers[i] = i + 1
	}

	return numbers
}

// Quote is a current price for a stock symbol
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
	Time   time.Time
}

// Transaction is one entry in the ledger of buys and sells.
//
// Shares and Cost are positive for buys and negative for sells.
type Transaction struct {
	ID           int64
	UserID       int64
	Symbol       string
	Name         string
	Shares       int64
	Price        decimal.Decimal
	Cost         decimal.Decimal
	TransactedAt time.Time
}

// IsBuy reports whether the transaction bought shares.
func (transaction Transaction) IsBuy() bool {
	return transaction.Shares > 0
}

// Holding represents the shares of one symbol a user currently holds
type Holding struct {
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Value  decimal.Decimal
	Priced bool
}

// Portfolio represents the cash and holdings of a user
type Portfolio struct {
	Cash     decimal.Decimal
	Holdings []Holding
	Total    decimal.Decimal
	// Unpriced lists symbols left out of Total because no quote was available.
	Unpriced []string
}
