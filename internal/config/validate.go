package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateHosts(); err != nil {
		return err
	}
	if err := c.validatePathMaps(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.WaitForNFO && c.Library.NFOTimeoutMinutes <= 0 {
		return errors.New("library.nfo_timeout_minutes must be positive when library.wait_for_nfo is true")
	}
	return nil
}

func (c *Config) validateHosts() error {
	seen := make(map[string]struct{}, len(c.Hosts))
	for i, host := range c.Hosts {
		label := fmt.Sprintf("hosts[%d]", i)
		if host.Name == "" {
			return fmt.Errorf("%s.name must be set", label)
		}
		key := strings.ToLower(host.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%s.name %q is duplicated", label, host.Name)
		}
		seen[key] = struct{}{}
		if host.Address == "" {
			return fmt.Errorf("%s.address must be set for host %q", label, host.Name)
		}
		if host.Port < 1 || host.Port > 65535 {
			return fmt.Errorf("%s.port %d is out of range for host %q", label, host.Port, host.Name)
		}
		if host.WSPort < 1 || host.WSPort > 65535 {
			return fmt.Errorf("%s.ws_port %d is out of range for host %q", label, host.WSPort, host.Name)
		}
		switch host.Transport {
		case TransportHTTP, TransportWebSocket:
		default:
			return fmt.Errorf("%s.transport %q must be %q or %q", label, host.Transport, TransportHTTP, TransportWebSocket)
		}
		if host.Password != "" && host.User == "" {
			return fmt.Errorf("%s.user must be set when a password is configured for host %q", label, host.Name)
		}
	}
	return nil
}

func (c *Config) validatePathMaps() error {
	for i, m := range c.PathMaps {
		if m.Target == "" {
			return fmt.Errorf("path_maps[%d].target must be set for source %q", i, m.Source)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "critical":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error, critical", c.Logging.Level)
	}
}
