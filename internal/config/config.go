package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	// StoreFileName holds playback stopped by a library mutation.
	StoreFileName = "stopped_movies.json"
	// LockFileName serializes event processing across processes.
	LockFileName = "kodarr.lock"
	// ConfigEnvVar names the config file when --config is not given. Radarr
	// invokes custom scripts without arguments.
	ConfigEnvVar = "KODARR_CONFIG"
)

// Paths contains state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Library contains the switches that shape every library workflow.
type Library struct {
	WaitForNFO        bool `toml:"wait_for_nfo"`
	NFOTimeoutMinutes int  `toml:"nfo_timeout_minutes"`
	SkipActive        bool `toml:"skip_active"`
	CleanAfterUpdate  bool `toml:"clean_after_update"`
	FullScanFallback  bool `toml:"full_scan_fallback"`
}

// Notifications toggles the Kodi GUI notification sent at the end of each
// event workflow.
type Notifications struct {
	OnGrab                      bool `toml:"on_grab"`
	OnDownloadNew               bool `toml:"on_download_new"`
	OnDownloadUpgrade           bool `toml:"on_download_upgrade"`
	OnRename                    bool `toml:"on_rename"`
	OnMovieAdd                  bool `toml:"on_movie_add"`
	OnMovieDelete               bool `toml:"on_movie_delete"`
	OnDelete                    bool `toml:"on_delete"`
	OnHealthIssue               bool `toml:"on_health_issue"`
	OnHealthRestored            bool `toml:"on_health_restored"`
	OnApplicationUpdate         bool `toml:"on_application_update"`
	OnManualInteractionRequired bool `toml:"on_manual_interaction_required"`
	OnTest                      bool `toml:"on_test"`
}

// Host describes one Kodi instance.
type Host struct {
	Name                 string `toml:"name"`
	Address              string `toml:"address"`
	Port                 int    `toml:"port"`
	WSPort               int    `toml:"ws_port"`
	User                 string `toml:"user"`
	Password             string `toml:"password"`
	Priority             int    `toml:"priority"`
	Enabled              *bool  `toml:"enabled"`
	DisableNotifications bool   `toml:"disable_notifications"`
	Transport            string `toml:"transport"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
}

// IsEnabled reports whether the host participates. Hosts are enabled unless
// explicitly switched off.
func (h Host) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// PathMap translates a path prefix reported by Radarr into the prefix Kodi uses.
type PathMap struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// Config encapsulates all configuration values for kodarr.
//
// Configuration sections by subsystem:
//   - Paths: state (preservation store, event lock) and log directories
//   - Logging: log format and level
//   - Library: NFO waiting, busy-host skipping, cleaning, full-scan fallback
//   - Notifications: per-event Kodi GUI notification toggles
//   - Hosts: the Kodi instances, tried in ascending priority order
//   - PathMaps: Radarr-to-Kodi path prefix translation, first match wins
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Library       Library       `toml:"library"`
	Notifications Notifications `toml:"notifications"`
	Hosts         []Host        `toml:"hosts"`
	PathMaps      []PathMap     `toml:"path_maps"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigEnvVar))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kodarr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the location of the playback preservation store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, StoreFileName)
}

// LockPath returns the location of the event lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, LockFileName)
}

// EnabledHosts returns the enabled hosts in priority order.
func (c *Config) EnabledHosts() []Host {
	hosts := make([]Host, 0, len(c.Hosts))
	for _, host := range c.Hosts {
		if host.IsEnabled() {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrConfigExists is returned by CreateSample when it would clobber a file.
var ErrConfigExists = errors.New("config file already exists")

// WriteSample writes the annotated sample configuration to w.
func WriteSample(w io.Writer) error {
	_, err := io.WriteString(w, sampleConfig)
	return err
}

// CreateSample writes the sample configuration to path. Unless overwrite is
// set, an existing file is left alone and ErrConfigExists is returned.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if err := WriteSample(file); err != nil {
		file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
