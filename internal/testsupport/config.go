package testsupport

import (
	"path/filepath"
	"testing"

	"kodarr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithHost appends an enabled HTTP host.
func WithHost(name, address string, port, priority int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hosts = append(b.cfg.Hosts, config.Host{
			Name:           name,
			Address:        address,
			Port:           port,
			WSPort:         9090,
			Priority:       priority,
			Transport:      config.TransportHTTP,
			TimeoutSeconds: 1,
		})
	}
}

// WithPathMap appends a path mapping.
func WithPathMap(source, target string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PathMaps = append(b.cfg.PathMaps, config.PathMap{Source: source, Target: target})
	}
}

// WithLibrary edits the library section.
func WithLibrary(edit func(*config.Library)) ConfigOption {
	return func(b *configBuilder) {
		edit(&b.cfg.Library)
	}
}

// WithNotifications edits the notification toggles.
func WithNotifications(edit func(*config.Notifications)) ConfigOption {
	return func(b *configBuilder) {
		edit(&b.cfg.Notifications)
	}
}
