// Package platform selects the backend that supplies audio endpoints.
package platform

import (
	"fmt"
	"strings"

	"github.com/smazurov/audiotopo/internal/platform/fixture"
	"github.com/smazurov/audiotopo/internal/platform/hda"
	"github.com/smazurov/audiotopo/internal/topology"
)

// Backend names.
const (
	BackendAuto    = "auto"
	BackendHDA     = "hda"
	BackendFixture = "fixture"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	ProcRoot    string
	FixtureFile string
}

// Resolve returns the backend that Open will use.
func (c Config) Resolve() (string, error) {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	switch backend {
	case "", BackendAuto:
		if c.FixtureFile != "" {
			return BackendFixture, nil
		}
		return BackendHDA, nil
	case BackendHDA, BackendFixture:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown platform backend %q", c.Backend)
	}
}

// Open returns the catalog of the configured backend.
func Open(cfg Config) (topology.Catalog, error) {
	backend, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendFixture:
		if cfg.FixtureFile == "" {
			return nil, fmt.Errorf("fixture backend requires a fixture file")
		}
		cat, err := fixture.Load(cfg.FixtureFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixture %s: %w", cfg.FixtureFile, err)
		}
		return cat, nil
	default:
		return hda.NewCatalog(cfg.ProcRoot), nil
	}
}
