package report

import (
	"os"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope sets the tags every event of this process carries.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "bustracker")
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": getHostname(),
		})
	})
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// ReportError reports err at the given level, sentry.LevelError by default.
func ReportError(err error, levels ...sentry.Level) {
	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}
	ReportErrorWithSentryOptions(err, SentryReportOptions{Level: level})
}

// SentryReportOptions provides optional data for reporting. Fingerprint
// overrides Sentry's grouping, so that failures of one line against one
// upstream collapse into a single issue.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
	Fingerprint  []string
}

// ReportErrorWithSentryOptions reports err with the given tags, context,
// level and fingerprint. A nil err is ignored.
func ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	reportToHub(sentry.CurrentHub(), err, opts)
}

func reportToHub(hub *sentry.Hub, err error, opts SentryReportOptions) {
	if err == nil || hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		if len(opts.Tags) > 0 {
			scope.SetTags(opts.Tags)
		}
		if opts.Level != "" {
			scope.SetLevel(opts.Level)
		}
		if len(opts.Fingerprint) > 0 {
			scope.SetFingerprint(opts.Fingerprint)
		}
		hub.CaptureException(err)
	})
}
