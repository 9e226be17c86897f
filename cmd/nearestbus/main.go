// Command nearestbus follows a single bus line from the terminal, printing
// the nearest buses every polling interval until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Caiqueoak/cade-meu-busao/internal/app"
	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/location"
	"github.com/Caiqueoak/cade-meu-busao/internal/publisher"
	"github.com/Caiqueoak/cade-meu-busao/internal/report"
	"github.com/Caiqueoak/cade-meu-busao/internal/session"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nearestbus", flag.ContinueOnError)
	fs.SetOutput(stderr)
	line := fs.String("line", "", "Bus line to follow, for example 8000-10")
	var lat, lon *float64
	fs.Func("lat", "Your latitude in decimal degrees", floatFlag(&lat))
	fs.Func("lon", "Your longitude in decimal degrees", floatFlag(&lon))

	cfg, err := config.Load(fs, args)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		fs.Usage()
		return 1
	}
	if *line == "" {
		fmt.Fprintln(stderr, "Error: -line is required")
		fs.Usage()
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := report.SetupSentry(cfg.Env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()

	application, err := app.New(cfg, logger, app.NewPooledClient(cfg.Upstream.Timeout), version)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		return 1
	}
	defer application.Close()

	var pub tracker.Publisher = publisher.NewWriterPublisher(stdout)
	if application.Publisher != nil {
		pub = publisher.Multi{pub, application.Publisher}
	}

	ctrl := application.NewController(session.NewID(), location.FromLatLon(lat, lon), tracker.WithPublisher(pub))
	application.Sessions.Add(ctrl)
	defer ctrl.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	application.Start(ctx)

	if err := ctrl.Search(ctx, *line); err != nil {
		logger.Error("Search failed", "line", *line, "error", err)
		return 1
	}
	if err := ctrl.LastErr(); err != nil && ctrl.State() == tracker.Idle {
		logger.Error("Search abandoned", "line", *line, "error", err)
		return 1
	}

	<-ctx.Done()
	return 0
}

func floatFlag(dst **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}
