package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/session"
)

// stubFetcher answers every line with the same routes or error.
type stubFetcher struct {
	mu     sync.Mutex
	routes []models.BusRoute
	err    error
	lines  []string
}

func (f *stubFetcher) FetchRoutesForLine(ctx context.Context, line string) ([]models.BusRoute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	if f.err != nil {
		return nil, f.err
	}
	return f.routes, nil
}

func (f *stubFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func sampleRoutes() []models.BusRoute {
	return []models.BusRoute{{
		RouteCode:         "8000-10",
		LineID:            33000,
		Direction:         1,
		MainTerminal:      "Lapa",
		SecondaryTerminal: "Pca. Ramos",
		VehicleCount:      2,
		Buses: []models.BusPosition{
			{Prefix: 11001, Latitude: -23.5505, Longitude: -46.6400},
			{Prefix: 11002, Latitude: -23.5600, Longitude: -46.6333},
		},
	}}
}

// newTestApplication returns an Application backed by fetcher, a fake clock
// and a small session registry. Sessions are purged when the test ends.
func newTestApplication(t *testing.T, fetcher *stubFetcher) *Application {
	t.Helper()

	cfg := config.Default()
	cfg.Upstream.APIBaseURL = "https://api.olhovivo.example.com"

	sessions, err := session.NewRegistry(4)
	if err != nil {
		t.Fatalf("failed to create session registry: %v", err)
	}

	app := &Application{
		Config:   cfg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:  "test-version",
		Fetcher:  fetcher,
		Sessions: sessions,
		Clock:    clocktesting.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
	}
	t.Cleanup(app.Close)
	return app
}
