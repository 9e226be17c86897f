//go:build integration

package integration

import (
	"flag"

	"github.com/Caiqueoak/cade-meu-busao/internal/config"
)

// loadIntegrationConfig reads the YAML file at path the same way the
// binaries do, with environment overrides applied.
func loadIntegrationConfig(path string) (*config.Config, error) {
	fs := flag.NewFlagSet("integration", flag.ContinueOnError)
	return config.Load(fs, []string{"--config-file", path})
}
