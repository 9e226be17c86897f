package transit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/utils"
)

// DefaultFeedTTL is how long a downloaded feed is reused.
const DefaultFeedTTL = 15 * time.Second

// FeedConfig describes a GTFS-RT vehicle positions feed. HeaderKey and
// HeaderValue, when both set, are sent with every request.
type FeedConfig struct {
	URL         string
	HeaderKey   string
	HeaderValue string
	TTL         time.Duration
}

// TerminalLookup names the terminals of a GTFS route, typically from a
// static bundle.
type TerminalLookup interface {
	Terminals(routeID string) (main, secondary string, ok bool)
}

// GTFSRealtimeFetcher serves routes of a line from a GTFS-RT vehicle
// positions feed. Vehicles are matched by route ID and grouped by direction.
type GTFSRealtimeFetcher struct {
	feed       FeedConfig
	host       string
	httpClient *http.Client
	backoff    *config.BackoffStore
	maxRetries int
	logger     *slog.Logger
	store      *RealtimeStore
	terminals  TerminalLookup
	now        func() time.Time

	// refreshMu serializes downloads so concurrent sessions share one.
	refreshMu sync.Mutex
}

func NewGTFSRealtimeFetcher(feed FeedConfig, httpClient *http.Client, backoff *config.BackoffStore, maxRetries int, logger *slog.Logger) (*GTFSRealtimeFetcher, error) {
	u, err := url.Parse(feed.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid GTFS-RT URL %q", feed.URL)
	}
	if feed.TTL <= 0 {
		feed.TTL = DefaultFeedTTL
	}
	if backoff == nil {
		backoff = config.NewBackoffStore()
	}
	return &GTFSRealtimeFetcher{
		feed:       feed,
		host:       u.Host,
		httpClient: httpClient,
		backoff:    backoff,
		maxRetries: maxRetries,
		logger:     logger,
		store:      NewRealtimeStore(),
		now:        time.Now,
	}, nil
}

// UseTerminals fills route terminal names from lookup. Call before the
// fetcher is shared.
func (f *GTFSRealtimeFetcher) UseTerminals(lookup TerminalLookup) {
	f.terminals = lookup
}

// FetchRoutesForLine implements tracker.RouteFetcher.
func (f *GTFSRealtimeFetcher) FetchRoutesForLine(ctx context.Context, line string) ([]models.BusRoute, error) {
	feed, err := f.realtime(ctx, line)
	if err != nil {
		return nil, err
	}
	return routesForLine(feed, line, f.terminals), nil
}

func (f *GTFSRealtimeFetcher) realtime(ctx context.Context, line string) (*gtfs.Realtime, error) {
	if feed, ok := f.store.Fresh(f.now(), f.feed.TTL); ok {
		return feed, nil
	}

	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if feed, ok := f.store.Fresh(f.now(), f.feed.TTL); ok {
		return feed, nil
	}

	feed, err := f.download(ctx, line)
	if err != nil {
		return nil, err
	}
	f.store.Set(feed, f.now())
	return feed, nil
}

func (f *GTFSRealtimeFetcher) download(ctx context.Context, line string) (*gtfs.Realtime, error) {
	redacted := utils.RedactRawURL(f.feed.URL)
	fail := func(status int, err error) error {
		return &FetchError{Line: line, URL: redacted, StatusCode: status, Err: err}
	}

	if !f.backoff.Ready(f.host, f.now()) {
		return nil, fail(0, ErrCoolingDown)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feed.URL, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	if f.feed.HeaderKey != "" && f.feed.HeaderValue != "" {
		req.Header.Set(f.feed.HeaderKey, f.feed.HeaderValue)
	}

	resp, err := config.DoWithBackoff(ctx, f.httpClient, req, f.maxRetries)
	if err != nil {
		if ctx.Err() == nil {
			f.backoff.UpdateBackoff(f.host)
		}
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError {
			f.backoff.UpdateBackoff(f.host)
		}
		return nil, fail(resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail(0, err)
	}

	feed, err := gtfs.ParseRealtime(data, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, fail(0, fmt.Errorf("parse GTFS-RT feed: %w", err))
	}
	f.backoff.ResetBackoff(f.host)

	metrics.RealtimeVehiclePositions.WithLabelValues(redacted).Set(float64(len(feed.Vehicles)))
	f.logger.Debug("Downloaded GTFS-RT feed", "feed_url", redacted, "vehicles", len(feed.Vehicles))
	return feed, nil
}

// routesForLine builds one BusRoute per direction from the vehicles serving
// line. Vehicles without a trip or position are skipped. Terminal names are
// left empty when terminals is nil or does not know the line.
func routesForLine(feed *gtfs.Realtime, line string, terminals TerminalLookup) []models.BusRoute {
	byDirection := make(map[int]*models.BusRoute)

	for _, v := range feed.Vehicles {
		if v.Trip == nil || v.Trip.ID.RouteID != line {
			continue
		}
		if v.Position == nil || v.Position.Latitude == nil || v.Position.Longitude == nil {
			continue
		}

		direction := directionOf(v.Trip.ID.DirectionID)
		route, ok := byDirection[direction]
		if !ok {
			lineID, _ := strconv.Atoi(line)
			route = &models.BusRoute{
				RouteCode: line,
				LineID:    lineID,
				Direction: direction,
				Buses:     make([]models.BusPosition, 0),
			}
			if terminals != nil {
				route.MainTerminal, route.SecondaryTerminal, _ = terminals.Terminals(line)
			}
			byDirection[direction] = route
		}

		bus := models.BusPosition{
			Prefix:    vehiclePrefix(v.ID),
			Latitude:  float64(*v.Position.Latitude),
			Longitude: float64(*v.Position.Longitude),
		}
		if v.Timestamp != nil {
			bus.UpdatedAt = models.Timestamp(*v.Timestamp)
		}
		route.Buses = append(route.Buses, bus)
		route.VehicleCount = len(route.Buses)
	}

	routes := make([]models.BusRoute, 0, len(byDirection))
	for _, route := range byDirection {
		routes = append(routes, *route)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Direction < routes[j].Direction })
	return routes
}

// directionOf maps GTFS direction_id 0 and 1 to directions 1 and 2.
// An unspecified direction maps to 0.
func directionOf(id gtfs.DirectionID) int {
	switch id {
	case gtfs.DirectionID_False:
		return 1
	case gtfs.DirectionID_True:
		return 2
	}
	return 0
}

// vehiclePrefix returns the numeric vehicle ID, else the numeric label, else 0.
func vehiclePrefix(id *gtfs.VehicleID) int {
	if id == nil {
		return 0
	}
	if n, err := strconv.Atoi(id.ID); err == nil {
		return n
	}
	if n, err := strconv.Atoi(id.Label); err == nil {
		return n
	}
	return 0
}
