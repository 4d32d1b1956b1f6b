package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeHosts()
	c.normalizePathMaps()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("KODARR_STATE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	if c.Library.NFOTimeoutMinutes <= 0 {
		c.Library.NFOTimeoutMinutes = defaultNFOTimeoutMinutes
	}
}

func (c *Config) normalizeHosts() {
	for i := range c.Hosts {
		host := &c.Hosts[i]
		host.Name = strings.TrimSpace(host.Name)
		host.Address = strings.TrimSpace(host.Address)
		host.User = strings.TrimSpace(host.User)
		host.Transport = strings.ToLower(strings.TrimSpace(host.Transport))
		switch host.Transport {
		case "":
			host.Transport = defaultTransport
		case "ws":
			host.Transport = TransportWebSocket
		}
		if host.Port == 0 {
			host.Port = defaultHTTPPort
		}
		if host.WSPort == 0 {
			host.WSPort = defaultWSPort
		}
		if host.TimeoutSeconds <= 0 {
			host.TimeoutSeconds = defaultHostTimeout
		}
	}
	// Lower priority values are tried first; ties keep file order.
	sort.SliceStable(c.Hosts, func(i, j int) bool {
		return c.Hosts[i].Priority < c.Hosts[j].Priority
	})
}

func (c *Config) normalizePathMaps() {
	maps := make([]PathMap, 0, len(c.PathMaps))
	for _, m := range c.PathMaps {
		m.Source = strings.TrimSpace(m.Source)
		m.Target = strings.TrimSpace(m.Target)
		if m.Source == "" {
			continue
		}
		maps = append(maps, m)
	}
	c.PathMaps = maps
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("KODARR_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
