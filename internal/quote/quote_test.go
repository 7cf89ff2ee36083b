package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
)

func newAlphaVantageServer(t *testing.T, handler http.HandlerFunc) *AlphaVantage {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAlphaVantage(server.Client(), server.URL, "demo", zap.NewNop())
}

func TestAlphaVantageLookup(t *testing.T) {
	api := newAlphaVantageServer(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "demo", request.URL.Query().Get("apikey"))

		switch request.URL.Query().Get("function") {
		case "GLOBAL_QUOTE":
			assert.Equal(t, "IBM", request.URL.Query().Get("symbol"))
			writer.Write([]byte(`{"Global Quote": {"01. symbol": "IBM", "05. price": "182.4500"}}`))
		case "SYMBOL_SEARCH":
			writer.Write([]byte(`{"bestMatches": [
				{"1. symbol": "IBMD", "2. name": "Something Else"},
				{"1. symbol": "IBM", "2. name": "International Business Machines Corp"}
			]}`))
		default:
			t.Errorf("unexpected function %q", request.URL.Query().Get("function"))
		}
	})

	found, err := api.Lookup(context.Background(), " ibm ")
	require.NoError(t, err)
	assert.Equal(t, "IBM", found.Symbol)
	assert.Equal(t, "International Business Machines Corp", found.Name)
	assert.True(t, decimal.RequireFromString("182.45").Equal(found.Price))
}

func TestAlphaVantageNameFallsBackToSymbol(t *testing.T) {
	api := newAlphaVantageServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("function") == "SYMBOL_SEARCH" {
			writer.WriteHeader(http.StatusInternalServerError)

			return
		}

		writer.Write([]byte(`{"Global Quote": {"01. symbol": "XYZ", "05. price": "1.00"}}`))
	})

	found, err := api.Lookup(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", found.Name)
}

func TestAlphaVantageErrors(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"unknown symbol", http.StatusOK, `{"Global Quote": {}}`, ErrNotFound},
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call."}`, ErrNotFound},
		{"zero price", http.StatusOK, `{"Global Quote": {"05. price": "0.0000"}}`, ErrNotFound},
		{"rate limited", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage!"}`, ErrUnavailable},
		{"information", http.StatusOK, `{"Information": "premium endpoint"}`, ErrUnavailable},
		{"bad price", http.StatusOK, `{"Global Quote": {"05. price": "abc"}}`, ErrUnavailable},
		{"not json", http.StatusOK, `<html>`, ErrUnavailable},
		{"server error", http.StatusBadGateway, ``, ErrUnavailable},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			api := newAlphaVantageServer(t, func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.status)
				writer.Write([]byte(testCase.body))
			})

			_, err := api.Lookup(context.Background(), "IBM")
			assert.ErrorIs(t, err, testCase.expected)
		})
	}
}

type countingQuoter struct {
	mutex sync.Mutex
	calls int
	next  Quoter
}

func (counter *countingQuoter) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	counter.mutex.Lock()
	counter.calls++
	counter.mutex.Unlock()

	return counter.next.Lookup(ctx, symbol)
}

func (counter *countingQuoter) Calls() int {
	counter.mutex.Lock()
	defer counter.mutex.Unlock()

	return counter.calls
}

func TestCachedLookup(t *testing.T) {
	static, err := NewStatic(map[string]string{"AAPL": "150.25"})
	require.NoError(t, err)

	counter := &countingQuoter{next: static}
	cached := NewCached(counter, NewCache(nil, time.Minute), time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := cached.Lookup(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.True(t, decimal.RequireFromString("150.25").Equal(first.Price))

	second, err := cached.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, first.Price.Equal(second.Price))
	assert.Equal(t, 1, counter.Calls())

	// Failures are passed through and never cached.
	_, err = cached.Lookup(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cached.Lookup(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 3, counter.Calls())
}

type memoryRecorder struct {
	quotes []model.Quote
	err    error
}

func (recorder *memoryRecorder) Record(_ context.Context, quote model.Quote) error {
	if recorder.err != nil {
		return recorder.err
	}

	recorder.quotes = append(recorder.quotes, quote)

	return nil
}

func TestArchivedLookup(t *testing.T) {
	static, err := NewStatic(map[string]string{"MSFT": "400"})
	require.NoError(t, err)

	recorder := &memoryRecorder{}
	archived := NewArchived(static, recorder, zap.NewNop())
	ctx := context.Background()

	_, err = archived.Lookup(ctx, "MSFT")
	require.NoError(t, err)
	_, err = archived.Lookup(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, recorder.quotes, 1)
	assert.Equal(t, "MSFT", recorder.quotes[0].Symbol)

	recorder.err = errors.New("clickhouse is down")

	found, err := archived.Lookup(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", found.Symbol)
}

func TestStatic(t *testing.T) {
	static := DefaultStatic()

	found, err := static.Lookup(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", found.Name)

	static.Remove("AAPL")

	_, err = static.Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewStatic(map[string]string{"BAD": "not a number"})
	assert.Error(t, err)
}
