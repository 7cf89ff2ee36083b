package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	// Alpha Vantage answers rate limited requests with 200 and one of these.
	Note        string `json:"Note"`
	Information string `json:"Information"`
	Error       string `json:"Error Message"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// AlphaVantage reads quotes from the Alpha Vantage API.
type AlphaVantage struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *zap.Logger
	now     func() time.Time
}

// NewAlphaVantage creates a client. A nil client uses a 10 second timeout.
func NewAlphaVantage(client *http.Client, baseURL, apiKey string, logger *zap.Logger) *AlphaVantage {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &AlphaVantage{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     logger,
		now:     time.Now,
	}
}

func (api *AlphaVantage) get(ctx context.Context, parameters url.Values, result any) error {
	parameters.Set("apikey", api.apiKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL+"?"+parameters.Encode(), nil)

	if err != nil {
		return err
	}

	response, err := api.client.Do(request)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, response.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))

	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := json.Unmarshal(content, result); err != nil {
		return fmt.Errorf("%w: invalid response: %v", ErrUnavailable, err)
	}

	return nil
}

func (api *AlphaVantage) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = Normalize(symbol)

	if symbol == "" {
		return nil, ErrNotFound
	}

	var result globalQuoteResponse

	if err := api.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &result); err != nil {
		return nil, err
	}

	switch {
	case result.Error != "":
		return nil, ErrNotFound
	case result.Note != "":
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, result.Note)
	case result.Information != "":
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, result.Information)
	case result.GlobalQuote.Price == "":
		return nil, ErrNotFound
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)

	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", ErrUnavailable, result.GlobalQuote.Price)
	}

	if !price.IsPositive() {
		return nil, ErrNotFound
	}

	return &model.Quote{
		Symbol: symbol,
		Name:   api.lookupName(ctx, symbol),
		Price:  price,
		Time:   api.now(),
	}, nil
}

// lookupName finds the company name for a symbol, falling back to the symbol.
func (api *AlphaVantage) lookupName(ctx context.Context, symbol string) string {
	var result symbolSearchResponse

	if err := api.get(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {symbol}}, &result); err != nil {
		api.log.Debug("Symbol search failed", zap.String("symbol", symbol), zap.Error(err))

		return symbol
	}

	for _, match := range result.BestMatches {
		if Normalize(match.Symbol) == symbol && match.Name != "" {
			return match.Name
		}
	}

	return symbol
}
