package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Caiqueoak/cade-meu-busao/internal/app"
	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/report"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := report.SetupSentry(cfg.Env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()

	application, err := app.New(cfg, logger, app.NewPooledClient(cfg.Upstream.Timeout), version)
	if err != nil {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error("Failed to start application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	application.Start(ctx)

	if err := serve(ctx, application); err != nil {
		report.ReportError(err, sentry.LevelFatal)
		logger.Error(err.Error())
		application.Close()
		report.FlushSentry()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// serve runs the API until ctx is cancelled, then gives in-flight requests
// a few seconds to finish.
func serve(ctx context.Context, application *app.Application) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", application.Config.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: application.Config.Upstream.Timeout + 10*time.Second,
		ErrorLog:     slog.NewLogLogger(application.Logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		application.Logger.Info("starting server",
			"addr", srv.Addr,
			"env", application.Config.Env,
			"upstream", application.Config.UpstreamName())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	application.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
