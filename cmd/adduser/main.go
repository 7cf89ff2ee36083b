// Create an account for logging in to either site
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/logging"
	"github.com/dense-analysis/boardfolio/internal/validate"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: adduser <username> <email> <password>\n")
		os.Exit(1)
	}

	form := validate.Registration{
		Username:     os.Args[1],
		Email:        os.Args[2],
		Password:     os.Args[3],
		Confirmation: os.Args[3],
	}

	if errs := validate.Register(&form); !errs.Empty() {
		fmt.Fprintf(os.Stderr, "Invalid account: %s\n", errs)
		os.Exit(1)
	}

	cfg, err := env.Load()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	ctx := context.Background()
	conn, err := database.Connect(ctx, cfg.Database.Database())

	if err != nil {
		logger.Fatal("Connection error", zap.Error(err))
	}

	defer conn.Close()

	user, err := account.NewStore(conn, cfg.SeedBalance, logger).Create(ctx, form.Username, form.Email, form.Password)

	if err != nil {
		logger.Fatal("Could not create account", zap.Error(err))
	}

	logger.Info("Created account", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
}
