package library

import (
	"context"
	"log/slog"
	"sort"

	"kodarr/internal/config"
	"kodarr/internal/logging"
	"kodarr/internal/services/kodi"
)

// Host is the per-host capability set the coordinator drives. *kodi.Client
// implements it.
type Host interface {
	Name() string
	Scanned() bool
	ResetScanned()

	ActivePlayers(ctx context.Context) []kodi.Player
	IsPlaying(ctx context.Context) bool
	PlayerItem(ctx context.Context, playerID int) *kodi.PlayerItem
	PlayerPercent(ctx context.Context, playerID int) float64
	IsPaused(ctx context.Context, playerID int) bool
	StopPlayer(ctx context.Context, playerID int) bool
	PausePlayer(ctx context.Context, playerID int) bool
	StartMovie(ctx context.Context, movieID int, position float64) *kodi.Player

	ScanDirectory(ctx context.Context, directory string) bool
	FullScan(ctx context.Context) bool
	CleanLibrary(ctx context.Context) bool
	UpdateGUI(ctx context.Context)

	AllMovies(ctx context.Context) []kodi.Movie
	MoviesByDirectory(ctx context.Context, directory string) []kodi.Movie
	MoviesByFile(ctx context.Context, file string) []kodi.Movie
	RemoveMovie(ctx context.Context, movieID int) bool
	SetWatchedState(ctx context.Context, movieID int, state kodi.WatchedState) bool

	Notify(ctx context.Context, title, message string, force bool)
	Close() error
}

var _ Host = (*kodi.Client)(nil)

// ConnectHosts builds a client for every enabled host in priority order, pings
// it, and keeps only the hosts that answer.
func ConnectHosts(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...kodi.Option) []Host {
	logger = logging.NewComponentLogger(logger, "library")
	configured := append([]config.Host(nil), cfg.Hosts...)
	sort.SliceStable(configured, func(i, j int) bool { return configured[i].Priority < configured[j].Priority })

	hosts := make([]Host, 0, len(configured))
	for _, hostCfg := range configured {
		if !hostCfg.IsEnabled() {
			logger.Info("skipping disabled host", logging.String(logging.FieldHost, hostCfg.Name))
			continue
		}
		client := kodi.NewFromConfig(hostCfg, cfg.PathMaps, logger, opts...)
		if !client.Ping(ctx) {
			logging.WarnWithContext(logger, "host unreachable, excluded for this event", "host_unreachable",
				logging.String(logging.FieldHost, hostCfg.Name),
				logging.String("address", hostCfg.Address),
				logging.String(logging.FieldErrorHint, "check that Kodi is running with remote control over HTTP enabled"),
				logging.String(logging.FieldImpact, "host will not be updated for this event"),
			)
			_ = client.Close()
			continue
		}
		logger.Info("connection established", logging.String(logging.FieldHost, client.Describe(ctx)))
		hosts = append(hosts, client)
	}
	return hosts
}
