package config

import (
	"errors"
	"time"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port     int            `yaml:"port" validate:"min=1,max=65535"`
	Env      string         `yaml:"env" validate:"oneof=development staging production"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Polling  PollingConfig  `yaml:"polling"`
	Sessions SessionsConfig `yaml:"sessions"`
	NATS     NATSConfig     `yaml:"nats"`
	CORS     CORSConfig     `yaml:"cors"`
}

// UpstreamConfig selects where bus positions come from. Exactly one of
// APIBaseURL and GTFSRealtimeURL must be set. GTFSStaticURL optionally
// points at the static bundle used to name GTFS-RT route terminals.
type UpstreamConfig struct {
	APIBaseURL              string        `yaml:"api_base_url" validate:"omitempty,url"`
	GTFSRealtimeURL         string        `yaml:"gtfs_rt_url" validate:"omitempty,url"`
	GTFSRealtimeHeaderKey   string        `yaml:"gtfs_rt_header_key"`
	GTFSRealtimeHeaderValue string        `yaml:"gtfs_rt_header_value" validate:"required_with=GTFSRealtimeHeaderKey"`
	GTFSStaticURL           string        `yaml:"gtfs_static_url" validate:"omitempty,url"`
	StaticRefresh           time.Duration `yaml:"static_refresh" validate:"min=1m"`
	MaxRetries              int           `yaml:"max_retries" validate:"min=0,max=10"`
	Timeout                 time.Duration `yaml:"timeout" validate:"min=1s"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval" validate:"min=1s"`
}

type SessionsConfig struct {
	MaxSessions int `yaml:"max_sessions" validate:"min=1"`
}

// NATSConfig enables board publishing when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix" validate:"required"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Upstream names used in logs, health checks and error reports.
const (
	UpstreamAPI          = "api"
	UpstreamGTFSRealtime = "gtfs-rt"
)

var (
	ErrNoUpstream        = errors.New("no upstream configured, set an API base URL or a GTFS-RT URL")
	ErrMultipleUpstreams = errors.New("only one of API base URL or GTFS-RT URL can be configured")
)

// Default returns the configuration used before any file, env or flag is applied.
func Default() *Config {
	return &Config{
		Port: 4000,
		Env:  "development",
		Upstream: UpstreamConfig{
			StaticRefresh: 24 * time.Hour,
			MaxRetries:    2,
			Timeout:       10 * time.Second,
		},
		Polling: PollingConfig{
			Interval: 60 * time.Second,
		},
		Sessions: SessionsConfig{
			MaxSessions: 1000,
		},
		NATS: NATSConfig{
			SubjectPrefix: "bustracker.boards",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// ValidateUpstream ensures that exactly one upstream is configured.
func (cfg *Config) ValidateUpstream() error {
	hasAPI := cfg.Upstream.APIBaseURL != ""
	hasGTFS := cfg.Upstream.GTFSRealtimeURL != ""
	switch {
	case !hasAPI && !hasGTFS:
		return ErrNoUpstream
	case hasAPI && hasGTFS:
		return ErrMultipleUpstreams
	}
	return nil
}

// UpstreamName returns UpstreamAPI or UpstreamGTFSRealtime, or "" when none is set.
func (cfg *Config) UpstreamName() string {
	switch {
	case cfg.Upstream.APIBaseURL != "":
		return UpstreamAPI
	case cfg.Upstream.GTFSRealtimeURL != "":
		return UpstreamGTFSRealtime
	}
	return ""
}
