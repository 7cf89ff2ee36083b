// Package server builds the routers for both sites and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/route/util"
)

const shutdownTimeout = 5 * time.Second

// Run serves handler on address until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, address string, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	failed := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	logger.Info("Server started", zap.String("address", address))

	select {
	case err := <-failed:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shut down failed: %w", err)
	}

	logger.Info("Server shut down successfully")

	return nil
}

// statusRecorder remembers the status code written for a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

func (recorder *statusRecorder) Write(data []byte) (int, error) {
	if recorder.status == 0 {
		recorder.status = http.StatusOK
	}

	return recorder.ResponseWriter.Write(data)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := writer.Header()
		header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		header.Set("Pragma", "no-cache")
		header.Set("Expires", "0")
		next.ServeHTTP(writer, request)
	})
}

func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer}

		next.ServeHTTP(recorder, request)

		logger.Info(
			"Request",
			zap.String("method", request.Method),
			zap.String("path", request.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func recoverPanics(app *app.App, next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			recovered := recover()

			if recovered == nil {
				return
			}

			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			app.Log.Error(
				"Panic while handling request",
				zap.String("method", request.Method),
				zap.String("path", request.URL.Path),
				zap.Any("panic", recovered),
				zap.ByteString("stack", debug.Stack()),
			)
			util.RespondApology(app, writer, request, http.StatusInternalServerError, "something went wrong")
		}()

		next.ServeHTTP(writer, request)
	})
}

// wrap applies the middleware every site shares.
func wrap(app *app.App, router http.Handler) http.Handler {
	return logRequests(app.Log, recoverPanics(app, noCache(router)))
}
