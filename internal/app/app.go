package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"k8s.io/utils/clock"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/gtfs"
	"github.com/Caiqueoak/cade-meu-busao/internal/location"
	"github.com/Caiqueoak/cade-meu-busao/internal/publisher"
	"github.com/Caiqueoak/cade-meu-busao/internal/session"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
	"github.com/Caiqueoak/cade-meu-busao/internal/transit"
)

// Application wires the route fetcher, the session registry and the board
// publishers behind the HTTP API.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Version   string
	Fetcher   tracker.RouteFetcher
	Sessions  *session.Registry
	Publisher tracker.Publisher

	// Clock drives session polling. Nil means the wall clock.
	Clock clock.WithTicker

	// StaticStore holds GTFS static terminal names. Nil unless a GTFS-RT
	// upstream is used with a static bundle URL.
	StaticStore *gtfs.StaticStore

	client *http.Client
	nats   *publisher.NATSPublisher
}

// New creates and wires all dependencies for the Application.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) (*Application, error) {
	var static *gtfs.StaticStore
	if cfg.UpstreamName() == config.UpstreamGTFSRealtime && cfg.Upstream.GTFSStaticURL != "" {
		static = gtfs.NewStaticStore()
	}

	fetcher, err := NewFetcher(cfg, client, logger, static)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewRegistry(cfg.Sessions.MaxSessions)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		Version:     version,
		Fetcher:     fetcher,
		Sessions:    sessions,
		StaticStore: static,
		client:      client,
	}

	if cfg.NATS.URL != "" {
		nats, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return nil, err
		}
		app.nats = nats
		app.Publisher = nats
	}

	return app, nil
}

// NewFetcher builds the route fetcher for the configured upstream. Both
// kinds share one backoff store keyed by host. A non-nil static store names
// GTFS-RT route terminals.
func NewFetcher(cfg *config.Config, client *http.Client, logger *slog.Logger, static *gtfs.StaticStore) (tracker.RouteFetcher, error) {
	if err := cfg.ValidateUpstream(); err != nil {
		return nil, err
	}
	backoff := config.NewBackoffStore()

	switch cfg.UpstreamName() {
	case config.UpstreamAPI:
		c, err := transit.NewClient(cfg.Upstream.APIBaseURL, client, backoff, cfg.Upstream.MaxRetries, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.UpstreamGTFSRealtime:
		feed := transit.FeedConfig{
			URL:         cfg.Upstream.GTFSRealtimeURL,
			HeaderKey:   cfg.Upstream.GTFSRealtimeHeaderKey,
			HeaderValue: cfg.Upstream.GTFSRealtimeHeaderValue,
		}
		f, err := transit.NewGTFSRealtimeFetcher(feed, client, backoff, cfg.Upstream.MaxRetries, logger)
		if err != nil {
			return nil, err
		}
		if static != nil {
			f.UseTerminals(static)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown upstream %q", cfg.UpstreamName())
}

// Start launches the GTFS static bundle refresh, when configured. It stops
// with ctx.
func (app *Application) Start(ctx context.Context) {
	if app.StaticStore == nil {
		return
	}
	go gtfs.RefreshBundles(ctx, app.client, app.Config.Upstream.GTFSStaticURL, app.StaticStore,
		app.Config.Upstream.StaticRefresh, app.Config.Upstream.MaxRetries, app.Logger)
}

// NewController returns a controller configured for this application.
func (app *Application) NewController(id string, locator location.Provider, opts ...tracker.Option) *tracker.Controller {
	base := []tracker.Option{
		tracker.WithSessionID(id),
		tracker.WithInterval(app.Config.Polling.Interval),
		tracker.WithLogger(app.Logger),
		tracker.WithUpstreamName(app.Config.UpstreamName()),
	}
	if app.Publisher != nil {
		base = append(base, tracker.WithPublisher(app.Publisher))
	}
	if app.Clock != nil {
		base = append(base, tracker.WithClock(app.Clock))
	}
	return tracker.New(app.Fetcher, locator, append(base, opts...)...)
}

// Close stops every session and closes the NATS connection.
func (app *Application) Close() {
	if app.Sessions != nil {
		app.Sessions.Purge()
	}
	if app.nats != nil {
		app.nats.Close()
	}
}
