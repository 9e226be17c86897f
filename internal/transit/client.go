// Package transit implements route fetchers backed by real upstreams: a JSON
// bus positions API and a GTFS-Realtime vehicle positions feed.
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/utils"
)

// maxBodyBytes caps upstream response bodies.
const maxBodyBytes = 16 << 20

// Client fetches routes from an API exposing GET {base}/bus/{line}, which
// answers with a JSON array of routes.
type Client struct {
	baseURL    string
	host       string
	httpClient *http.Client
	backoff    *config.BackoffStore
	maxRetries int
	logger     *slog.Logger
}

// NewClient returns a Client for baseURL. The backoff store may be shared
// with other fetchers; it is keyed by host.
func NewClient(baseURL string, httpClient *http.Client, backoff *config.BackoffStore, maxRetries int, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if backoff == nil {
		backoff = config.NewBackoffStore()
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		host:       u.Host,
		httpClient: httpClient,
		backoff:    backoff,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (c *Client) lineURL(line string) string {
	return c.baseURL + "/bus/" + url.PathEscape(line)
}

// FetchRoutesForLine implements tracker.RouteFetcher. An empty array from
// the API yields an empty, non-nil slice.
func (c *Client) FetchRoutesForLine(ctx context.Context, line string) ([]models.BusRoute, error) {
	endpoint := c.lineURL(line)
	fail := func(status int, err error) error {
		return &FetchError{Line: line, URL: utils.RedactRawURL(endpoint), StatusCode: status, Err: err}
	}

	if !c.backoff.Ready(c.host, time.Now()) {
		return nil, fail(0, ErrCoolingDown)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := config.DoWithBackoff(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		if ctx.Err() == nil {
			c.backoff.UpdateBackoff(c.host)
		}
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError {
			c.backoff.UpdateBackoff(c.host)
		}
		return nil, fail(resp.StatusCode, nil)
	}

	var routes []models.BusRoute
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&routes); err != nil {
		return nil, fail(0, fmt.Errorf("decode response: %w", err))
	}
	c.backoff.ResetBackoff(c.host)

	if routes == nil {
		routes = make([]models.BusRoute, 0)
	}
	c.logger.Debug("Fetched routes", "line", line, "routes", len(routes))
	return routes, nil
}
