package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BUSTRACKER_"

var validate = validator.New()

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by --config-file, .env and the process environment,
// and flags explicitly set in args.
//
// The shared flags are registered on fs, so callers can add their own flags
// before calling Load and read them afterwards.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	var (
		configFile  = fs.String("config-file", "", "Path to a YAML configuration file")
		port        = fs.Int("port", cfg.Port, "API server port")
		env         = fs.String("env", cfg.Env, "Environment (development|staging|production)")
		apiURL      = fs.String("api-url", "", "Base URL of the bus positions API")
		gtfsURL     = fs.String("gtfs-rt-url", "", "GTFS-RT vehicle positions feed URL")
		gtfsKey     = fs.String("gtfs-rt-header-key", "", "Header name sent with GTFS-RT requests")
		gtfsValue   = fs.String("gtfs-rt-header-value", "", "Header value sent with GTFS-RT requests")
		staticURL   = fs.String("gtfs-static-url", "", "GTFS static bundle URL used for terminal names")
		maxRetries  = fs.Int("max-retries", cfg.Upstream.MaxRetries, "Retries for failed upstream requests")
		timeout     = fs.Duration("upstream-timeout", cfg.Upstream.Timeout, "Upstream request timeout")
		interval    = fs.Duration("interval", cfg.Polling.Interval, "Polling interval")
		maxSessions = fs.Int("max-sessions", cfg.Sessions.MaxSessions, "Maximum number of live sessions")
		natsURL     = fs.String("nats-url", "", "NATS server URL for board publishing")
		origins     = fs.String("cors-origins", "", "Comma-separated list of allowed CORS origins")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		if err := loadConfigFromFile(*configFile, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "env":
			cfg.Env = *env
		case "api-url":
			cfg.Upstream.APIBaseURL = *apiURL
		case "gtfs-rt-url":
			cfg.Upstream.GTFSRealtimeURL = *gtfsURL
		case "gtfs-rt-header-key":
			cfg.Upstream.GTFSRealtimeHeaderKey = *gtfsKey
		case "gtfs-rt-header-value":
			cfg.Upstream.GTFSRealtimeHeaderValue = *gtfsValue
		case "gtfs-static-url":
			cfg.Upstream.GTFSStaticURL = *staticURL
		case "max-retries":
			cfg.Upstream.MaxRetries = *maxRetries
		case "upstream-timeout":
			cfg.Upstream.Timeout = *timeout
		case "interval":
			cfg.Polling.Interval = *interval
		case "max-sessions":
			cfg.Sessions.MaxSessions = *maxSessions
		case "nats-url":
			cfg.NATS.URL = *natsURL
		case "cors-origins":
			cfg.CORS.AllowedOrigins = splitList(*origins)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the upstream selection.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg.ValidateUpstream()
}

// loadConfigFromFile overlays the YAML file at filePath onto cfg. Keys
// absent from the file keep their current values.
func loadConfigFromFile(filePath string, cfg *Config) error {
	// #nosec G304 -- path comes from the operator's own flag.
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %q", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %q", EnvPrefix, name, v)
		}
		*dst = d
		return nil
	}

	str("ENV", &cfg.Env)
	str("API_BASE_URL", &cfg.Upstream.APIBaseURL)
	str("GTFS_RT_URL", &cfg.Upstream.GTFSRealtimeURL)
	str("GTFS_RT_HEADER_KEY", &cfg.Upstream.GTFSRealtimeHeaderKey)
	str("GTFS_RT_HEADER_VALUE", &cfg.Upstream.GTFSRealtimeHeaderValue)
	str("GTFS_STATIC_URL", &cfg.Upstream.GTFSStaticURL)
	str("NATS_URL", &cfg.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &cfg.NATS.SubjectPrefix)
	if v, ok := lookup(EnvPrefix + "CORS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}

	for _, err := range []error{
		integer("PORT", &cfg.Port),
		integer("MAX_RETRIES", &cfg.Upstream.MaxRetries),
		integer("MAX_SESSIONS", &cfg.Sessions.MaxSessions),
		duration("UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout),
		duration("POLL_INTERVAL", &cfg.Polling.Interval),
		duration("GTFS_STATIC_REFRESH", &cfg.Upstream.StaticRefresh),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
