package quote

import (
	"context"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
)

const localCacheSize = 1000

// NewCache creates a quote cache. Without a Redis client quotes are only
// cached in process.
func NewCache(client *redis.Client, ttl time.Duration) *cache.Cache {
	options := &cache.Options{LocalCache: cache.NewTinyLFU(localCacheSize, ttl)}

	if client != nil {
		options.Redis = client
	}

	return cache.New(options)
}

type cachedQuote struct {
	Symbol string    `msgpack:"symbol"`
	Name   string    `msgpack:"name"`
	Price  string    `msgpack:"price"`
	Time   time.Time `msgpack:"time"`
}

// Cached keeps quotes from another Quoter for a short time.
//
// Failed lookups are not cached.
type Cached struct {
	next  Quoter
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCached(next Quoter, quoteCache *cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{next: next, cache: quoteCache, ttl: ttl, log: logger}
}

func cacheKey(symbol string) string {
	return "quote:" + symbol
}

func (cached *Cached) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = Normalize(symbol)

	var item cachedQuote

	err := cached.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   cacheKey(symbol),
		Value: &item,
		TTL:   cached.ttl,
		Do: func(*cache.Item) (any, error) {
			found, err := cached.next.Lookup(ctx, symbol)

			if err != nil {
				return nil, err
			}

			cached.log.Debug("Cached quote", zap.String("symbol", found.Symbol), zap.Stringer("price", found.Price))

			return &cachedQuote{
				Symbol: found.Symbol,
				Name:   found.Name,
				Price:  found.Price.String(),
				Time:   found.Time,
			}, nil
		},
	})

	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(item.Price)

	if err != nil {
		// A corrupt entry is dropped and fetched again next time.
		_ = cached.cache.Delete(ctx, cacheKey(symbol))

		return nil, ErrUnavailable
	}

	return &model.Quote{Symbol: item.Symbol, Name: item.Name, Price: price, Time: item.Time}, nil
}
