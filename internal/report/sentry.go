package report

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initializes the Sentry client from SENTRY_DSN. With an empty
// DSN the SDK stays installed but sends nothing, so reporting calls are safe
// in development and tests.
func SetupSentry(env, version string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      env,
		Release:          version,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	ConfigureScope(env, version)
	sentry.CaptureMessage("Bus tracker started")
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
