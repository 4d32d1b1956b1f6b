package config

const (
	defaultConfigPath        = "~/.config/kodarr/config.toml"
	defaultStateDir          = "~/.local/share/kodarr"
	defaultLogDir            = "~/.local/share/kodarr/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultNFOTimeoutMinutes = 5
	defaultHTTPPort          = 8080
	defaultWSPort            = 9090
	defaultTransport         = TransportHTTP
	defaultHostTimeout       = 5
)

// Transport names accepted in hosts.transport.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Library: Library{
			NFOTimeoutMinutes: defaultNFOTimeoutMinutes,
			SkipActive:        false,
			CleanAfterUpdate:  false,
			FullScanFallback:  false,
		},
		Notifications: Notifications{
			OnGrab:                      true,
			OnDownloadNew:               true,
			OnDownloadUpgrade:           true,
			OnRename:                    true,
			OnMovieAdd:                  true,
			OnMovieDelete:               true,
			OnDelete:                    true,
			OnHealthIssue:               true,
			OnHealthRestored:            true,
			OnApplicationUpdate:         true,
			OnManualInteractionRequired: true,
			OnTest:                      true,
		},
	}
}
