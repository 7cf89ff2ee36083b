// Package app builds the dependencies shared by the route handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/archive"
	"github.com/dense-analysis/boardfolio/internal/avatar"
	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/ledger"
	"github.com/dense-analysis/boardfolio/internal/mail"
	"github.com/dense-analysis/boardfolio/internal/post"
	"github.com/dense-analysis/boardfolio/internal/quote"
	"github.com/dense-analysis/boardfolio/internal/session"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/token"
)

const (
	SiteMeetup  = "meetup"
	SiteFinance = "finance"
)

// App holds everything a request handler may need.
type App struct {
	Site      string
	Config    *env.Config
	Log       *zap.Logger
	DB        *database.Conn
	Accounts  *account.Store
	Posts     *post.Store
	Ledger    *ledger.Ledger
	Quotes    quote.Quoter
	Tokens    *token.Issuer
	Mail      mail.Sender
	Avatars   *avatar.Store
	Sessions  *session.Store
	Templates *template.Renderer

	archive *archive.Archive
	redis   *redis.Client
}

// New connects to the configured services and builds an App for a site.
func New(ctx context.Context, site string, cfg *env.Config, logger *zap.Logger) (*App, error) {
	conn, err := database.Connect(ctx, cfg.Database.Database())

	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	app := &App{Site: site, Config: cfg, Log: logger, DB: conn}

	if err := app.connectQuotes(ctx); err != nil {
		app.Close()

		return nil, err
	}

	templates, err := template.New(logger)

	if err != nil {
		app.Close()

		return nil, err
	}

	app.Templates = templates
	app.Accounts = account.NewStore(conn, cfg.SeedBalance, logger)
	app.Posts = post.NewStore(conn, logger)
	app.Ledger = ledger.New(conn, app.Quotes, cfg.SeedBalance, logger)
	app.Tokens = token.NewIssuer(cfg.SecretKey, cfg.ResetTokenTTL, logger)
	app.Avatars = avatar.NewStore(cfg.AvatarDir, logger)
	app.Sessions = session.NewStore(cfg.SecretKey, strings.HasPrefix(cfg.BaseURL, "https://"))

	if cfg.SMTP.Host != "" {
		app.Mail = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
	} else {
		app.Mail = mail.NewLogSender(logger)
	}

	return app, nil
}

// NewProvider returns the configured quote source without caching.
func NewProvider(cfg env.QuoteConfig, logger *zap.Logger) (quote.Quoter, error) {
	switch cfg.Provider {
	case "static":
		return quote.DefaultStatic(), nil
	case "alphavantage":
		if cfg.APIKey == "" {
			return nil, errors.New("QUOTE_API_KEY is required for the alphavantage provider")
		}

		return quote.NewAlphaVantage(nil, cfg.APIURL, cfg.APIKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown QUOTE_PROVIDER %q", cfg.Provider)
	}
}

// connectQuotes builds the quote lookup chain: provider, then the optional
// ClickHouse archive, then the cache.
func (app *App) connectQuotes(ctx context.Context) error {
	cfg := app.Config
	quoter, err := NewProvider(cfg.Quote, app.Log)

	if err != nil {
		return err
	}

	archiveConfig := cfg.ClickHouse.Archive()

	if archiveConfig.Enabled() {
		quoteArchive, err := archive.Connect(ctx, archiveConfig)

		if err != nil {
			return fmt.Errorf("clickhouse connection error: %w", err)
		}

		app.archive = quoteArchive
		quoter = quote.NewArchived(quoter, quoteArchive, app.Log)
	}

	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection error: %w", err)
		}
	}

	app.Quotes = quote.NewCached(quoter, quote.NewCache(app.redis, cfg.Quote.CacheTTL), cfg.Quote.CacheTTL, app.Log)

	return nil
}

// Close releases every connection the App opened.
func (app *App) Close() error {
	var errs []error

	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}

	if app.archive != nil {
		errs = append(errs, app.archive.Close())
	}

	if app.DB != nil {
		errs = append(errs, app.DB.Close())
	}

	return errors.Join(errs...)
}
