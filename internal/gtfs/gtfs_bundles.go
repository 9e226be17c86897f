// Package gtfs downloads GTFS static bundles and keeps the route terminal
// names GTFS-RT vehicle feeds lack.
package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/report"
	"github.com/Caiqueoak/cade-meu-busao/internal/utils"
)

// maxBundleBytes bounds a downloaded bundle.
const maxBundleBytes = 256 << 20

// DownloadBundle fetches and parses the GTFS static bundle at url, retrying
// transient failures up to maxRetries times.
func DownloadBundle(ctx context.Context, client *http.Client, url string, maxRetries int) (*remoteGtfs.Static, error) {
	redacted := utils.RedactRawURL(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", redacted, err)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", redacted, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d when downloading GTFS bundle from %s", resp.StatusCode, redacted)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS bundle response body from %s: %w", redacted, err)
	}

	staticBundle, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS static data from %s: %w", redacted, err)
	}
	return staticBundle, nil
}

// LoadBundle downloads the bundle at url and replaces the catalog in store.
// On failure the previous catalog is kept and the error is reported.
func LoadBundle(ctx context.Context, client *http.Client, url string, store *StaticStore, maxRetries int, logger *slog.Logger) error {
	staticBundle, err := DownloadBundle(ctx, client, url, maxRetries)
	if err != nil {
		if ctx.Err() == nil {
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Tags:  utils.MakeMap("component", "gtfs_static"),
				Level: sentry.LevelError,
				ExtraContext: map[string]interface{}{
					"url": utils.RedactRawURL(url),
				},
			})
		}
		logger.Error("Failed to download GTFS bundle", "url", utils.RedactRawURL(url), "error", err)
		return err
	}

	catalog := NewCatalog(staticBundle)
	store.Set(catalog, time.Now())
	metrics.StaticCatalogRoutes.Set(float64(catalog.Len()))
	logger.Info("Loaded GTFS bundle", "url", utils.RedactRawURL(url), "routes", catalog.Len())
	return nil
}

// RefreshBundles loads the bundle immediately and then every interval until
// ctx is cancelled.
func RefreshBundles(ctx context.Context, client *http.Client, url string, store *StaticStore, interval time.Duration, maxRetries int, logger *slog.Logger) {
	_ = LoadBundle(ctx, client, url, store, maxRetries, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping GTFS bundle refresh routine")
			return
		case <-ticker.C:
			logger.Info("Refreshing GTFS bundle")
			_ = LoadBundle(ctx, client, url, store, maxRetries, logger)
		}
	}
}
