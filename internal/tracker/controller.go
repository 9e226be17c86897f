// Package tracker drives a bus search session: it resolves the user's
// location, fetches the routes of a line, ranks the nearest buses and keeps
// refreshing them on an interval until a new search or Stop.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"k8s.io/utils/clock"

	"github.com/Caiqueoak/cade-meu-busao/internal/location"
	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/nearest"
	"github.com/Caiqueoak/cade-meu-busao/internal/report"
	"github.com/Caiqueoak/cade-meu-busao/internal/utils"
)

// DefaultInterval is the polling period used when WithInterval is not given.
const DefaultInterval = 60 * time.Second

// RouteFetcher returns the routes and live buses of a line. An empty slice
// with a nil error means the line has no buses right now.
type RouteFetcher interface {
	FetchRoutesForLine(ctx context.Context, line string) ([]models.BusRoute, error)
}

// Publisher receives every board a controller displays.
type Publisher interface {
	PublishBoard(sessionID string, b models.Board) error
}

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock replaces the wall clock. Tests pass a fake clock to drive ticks.
func WithClock(clk clock.WithTicker) Option {
	return func(c *Controller) { c.clock = clk }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithLocationRefresh asks the location provider again on every search
// instead of reusing the first coordinate obtained.
func WithLocationRefresh(refresh bool) Option {
	return func(c *Controller) { c.refreshLocation = refresh }
}

func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithUpstreamName labels error reports with the upstream serving the fetches.
func WithUpstreamName(name string) Option {
	return func(c *Controller) { c.upstream = name }
}

// Controller owns one search session. It is safe for concurrent use.
//
// Every search starts a new session token. Fetch results are applied only
// while their token is still current, so a slow response from an old
// session can never overwrite a newer one.
type Controller struct {
	fetcher         RouteFetcher
	locator         location.Provider
	publisher       Publisher
	clock           clock.WithTicker
	interval        time.Duration
	logger          *slog.Logger
	refreshLocation bool
	sessionID       string
	upstream        string

	mu        sync.Mutex
	state     State
	searching bool
	loading   bool
	board     models.Board
	lastErr   error
	location  *models.Coordinate
	token     uint64
	ticker    clock.Ticker
	cancel    context.CancelFunc

	// wg tracks polling goroutines so Stop can wait for them.
	wg sync.WaitGroup
}

// New creates an idle controller.
func New(fetcher RouteFetcher, locator location.Provider, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		locator:  locator,
		clock:    clock.RealClock{},
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:    Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the identifier given with WithSessionID.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Search starts a new session for line. The previous session's timer is
// cancelled before anything else happens.
//
// A denied or failed location lookup abandons the search: the controller
// goes back to Idle, LastErr reports models.ErrLocationUnavailable and
// Search returns nil. A failed fetch returns an error wrapping
// models.ErrFetchFailed and does not start polling.
func (c *Controller) Search(ctx context.Context, line string) error {
	c.mu.Lock()
	if c.state == Stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.searching {
		c.mu.Unlock()
		return ErrSearchInProgress
	}
	c.searching = true
	defer c.endSearch()

	c.cancelSessionLocked()
	c.token++
	token := c.token
	sessionCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	origin, haveLocation := c.cachedLocationLocked()
	locator := c.locator
	if !haveLocation {
		c.state = AwaitingLocation
	}
	c.mu.Unlock()

	logger := c.logger.With("session_id", c.sessionID, "line", line)

	// The fetch is aborted by either the caller or the session ending.
	fetchCtx, stopFetch := context.WithCancel(ctx)
	defer stopFetch()
	stopAfter := context.AfterFunc(sessionCtx, stopFetch)
	defer stopAfter()

	if !haveLocation {
		coord, err := acquireLocation(fetchCtx, locator)
		c.mu.Lock()
		if c.state == Stopped || token != c.token {
			c.mu.Unlock()
			return ErrStopped
		}
		if err != nil {
			c.state = Idle
			c.lastErr = err
			c.mu.Unlock()
			logger.Debug("Search abandoned without location", "error", err)
			return nil
		}
		c.location = &coord
		origin = coord
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.state = Fetching
	c.loading = true
	c.mu.Unlock()

	routes, err := c.fetch(fetchCtx, line, metrics.TriggerManual)

	c.mu.Lock()
	c.loading = false
	if c.state == Stopped || token != c.token {
		c.mu.Unlock()
		if err == nil {
			metrics.StaleResultsDiscarded.Inc()
		}
		return ErrStopped
	}
	if err != nil {
		c.state = Idle
		c.lastErr = err
		c.mu.Unlock()
		logger.Warn("Manual fetch failed", "error", err)
		return err
	}

	board := c.applyLocked(line, origin, routes)
	c.state = Polling
	ticker := c.clock.NewTicker(c.interval)
	c.ticker = ticker
	c.wg.Add(1)
	go c.poll(sessionCtx, ticker, token, line, origin)
	c.mu.Unlock()

	logger.Info("Search started", "routes", len(routes), "nearest", len(board.Nearest))
	c.publish(board)
	return nil
}

// SetLocator replaces the location provider and forgets the cached
// location, so the next Search asks the new provider. A running session
// keeps polling from the location it started with.
func (c *Controller) SetLocator(locator location.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locator = locator
	c.location = nil
}

func (c *Controller) endSearch() {
	c.mu.Lock()
	c.searching = false
	c.loading = false
	c.mu.Unlock()
}

// cancelSessionLocked stops the current ticker and cancels the session
// context. Must be called with c.mu held.
func (c *Controller) cancelSessionLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) cachedLocationLocked() (models.Coordinate, bool) {
	if c.location == nil || c.refreshLocation {
		return models.Coordinate{}, false
	}
	return *c.location, true
}

func acquireLocation(ctx context.Context, locator location.Provider) (models.Coordinate, error) {
	if locator == nil {
		return models.Coordinate{}, models.ErrLocationUnavailable
	}
	granted, err := locator.RequestPermission(ctx)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: %w", models.ErrLocationUnavailable, err)
	}
	if !granted {
		return models.Coordinate{}, fmt.Errorf("%w: permission denied", models.ErrLocationUnavailable)
	}
	coord, err := locator.CurrentLocation(ctx)
	if err != nil {
		if errors.Is(err, models.ErrLocationUnavailable) {
			return models.Coordinate{}, err
		}
		return models.Coordinate{}, fmt.Errorf("%w: %w", models.ErrLocationUnavailable, err)
	}
	return coord, nil
}

// fetch calls the fetcher and records fetch metrics. The returned error
// always wraps models.ErrFetchFailed.
func (c *Controller) fetch(ctx context.Context, line, trigger string) ([]models.BusRoute, error) {
	start := c.clock.Now()
	routes, err := c.fetcher.FetchRoutesForLine(ctx, line)
	metrics.FetchDuration.WithLabelValues(trigger).Observe(c.clock.Since(start).Seconds())

	if err != nil {
		metrics.FetchTotal.WithLabelValues(trigger, metrics.ResultError).Inc()
		if !errors.Is(err, models.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", models.ErrFetchFailed, err)
		}
		return nil, err
	}
	if len(routes) == 0 {
		metrics.FetchTotal.WithLabelValues(trigger, metrics.ResultEmpty).Inc()
	} else {
		metrics.FetchTotal.WithLabelValues(trigger, metrics.ResultSuccess).Inc()
	}
	return routes, nil
}

// applyLocked replaces the board with the result of a successful fetch.
// Must be called with c.mu held.
func (c *Controller) applyLocked(line string, origin models.Coordinate, routes []models.BusRoute) models.Board {
	board := models.Board{
		Line:      line,
		Routes:    routes,
		UpdatedAt: c.clock.Now(),
	}
	if len(routes) == 0 {
		board.Routes = make([]models.BusRoute, 0)
		board.Nearest = make([]models.RankedBus, 0)
		board.Message = NoBusesMessage
	} else {
		board.Nearest = nearest.Select(origin, routes)
		if len(board.Nearest) > 0 {
			metrics.NearestBusDistance.WithLabelValues(line).Set(board.Nearest[0].DistanceKm)
		}
	}
	c.board = board
	c.lastErr = nil
	return board
}

func (c *Controller) poll(ctx context.Context, ticker clock.Ticker, token uint64, line string, origin models.Coordinate) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			c.refresh(ctx, token, line, origin)
		}
	}
}

// refresh performs one periodic fetch. Failures keep the previous board.
func (c *Controller) refresh(ctx context.Context, token uint64, line string, origin models.Coordinate) {
	routes, err := c.fetch(ctx, line, metrics.TriggerTick)

	c.mu.Lock()
	if c.state == Stopped || token != c.token {
		c.mu.Unlock()
		if err == nil {
			metrics.StaleResultsDiscarded.Inc()
		}
		metrics.FetchTotal.WithLabelValues(metrics.TriggerTick, metrics.ResultStale).Inc()
		c.logger.Debug("Discarded stale fetch result", "session_id", c.sessionID, "line", line)
		return
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("Periodic fetch failed", "session_id", c.sessionID, "line", line, "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:        utils.MakeMap("line", line, "session_id", c.sessionID, "upstream", c.upstream),
			Level:       sentry.LevelWarning,
			Fingerprint: []string{"tick-fetch", c.upstream, line},
		})
		return
	}
	board := c.applyLocked(line, origin, routes)
	c.mu.Unlock()

	c.publish(board)
}

func (c *Controller) publish(board models.Board) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishBoard(c.sessionID, board); err != nil {
		c.logger.Warn("Failed to publish board", "session_id", c.sessionID, "line", board.Line, "error", err)
	}
}

// Stop ends the controller for good. It cancels the timer and any in-flight
// fetch, then waits for the polling goroutine to exit. Calling Stop more
// than once is safe.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != Stopped {
		c.state = Stopped
		c.token++
		c.cancelSessionLocked()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastErr returns the error of the most recent failed step, or nil after a
// successful fetch.
func (c *Controller) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot returns a copy of the current display. Board slices are shared
// but never modified after they are built.
func (c *Controller) Snapshot() Display {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Display{
		SessionID: c.sessionID,
		State:     c.state,
		Loading:   c.loading,
		Board:     c.board,
	}
	if c.lastErr != nil {
		d.LastError = c.lastErr.Error()
	}
	if c.location != nil {
		loc := *c.location
		d.Location = &loc
	}
	return d
}
