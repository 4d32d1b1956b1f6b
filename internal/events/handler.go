package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"kodarr/internal/config"
	"kodarr/internal/library"
	"kodarr/internal/logging"
	"kodarr/internal/playback"
	"kodarr/internal/radarr"
	"kodarr/internal/services"
	"kodarr/internal/services/kodi"
)

const defaultNFOPollInterval = time.Second

// Library is the coordinator surface the workflows drive.
type Library interface {
	ResetScanned()
	Notify(ctx context.Context, title, message string)
	UpdateGUIs(ctx context.Context)

	MoviesByDirectory(ctx context.Context, directory string) []kodi.Movie
	MoviesByFile(ctx context.Context, file string) []kodi.Movie
	RemoveMovies(ctx context.Context, movies []kodi.Movie) []kodi.Movie
	Reconcile(ctx context.Context, removed, added []kodi.Movie) int

	ScanDirectory(ctx context.Context, directory string, skipActive bool) ([]kodi.Movie, error)
	FullScan(ctx context.Context, skipActive bool) ([]kodi.Movie, error)
	CleanLibrary(ctx context.Context, skipActive bool) error

	StopPlayback(ctx context.Context, movies []kodi.Movie, reason string, store bool) []playback.Record
	StartPlayback(ctx context.Context, added []kodi.Movie) int
	DiscardStopped(ctx context.Context)
}

var _ Library = (*library.Manager)(nil)

// Handler dispatches Radarr events.
type Handler struct {
	library  Library
	settings config.Library
	toggles  config.Notifications
	fs       afero.Fs
	logger   *slog.Logger

	nfoPoll time.Duration
	sleep   kodi.Sleeper
	now     func() time.Time
	newID   func() string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logging.NewComponentLogger(logger, "events")
		}
	}
}

// WithFs replaces the filesystem used to look for NFO files.
func WithFs(fs afero.Fs) Option {
	return func(h *Handler) {
		if fs != nil {
			h.fs = fs
		}
	}
}

// WithNFOPollInterval overrides how often NFO files are checked for.
func WithNFOPollInterval(interval time.Duration) Option {
	return func(h *Handler) {
		if interval > 0 {
			h.nfoPoll = interval
		}
	}
}

// WithSleeper replaces the wait function used while polling for NFO files.
func WithSleeper(sleep kodi.Sleeper) Option {
	return func(h *Handler) {
		if sleep != nil {
			h.sleep = sleep
		}
	}
}

// WithClock replaces the time source used for NFO deadlines.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithCorrelationIDs replaces the generator of per-event correlation ids.
func WithCorrelationIDs(newID func() string) Option {
	return func(h *Handler) {
		if newID != nil {
			h.newID = newID
		}
	}
}

// NewHandler builds a Handler from the library and notification sections of cfg.
func NewHandler(cfg *config.Config, lib Library, opts ...Option) *Handler {
	h := &Handler{
		library:  lib,
		settings: cfg.Library,
		toggles:  cfg.Notifications,
		fs:       afero.NewOsFs(),
		logger:   logging.NewComponentLogger(nil, "events"),
		nfoPoll:  defaultNFOPollInterval,
		sleep:    kodi.SleepContext,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dispatch runs the workflow for event. Workflow-fatal errors are logged at
// critical level before being returned.
func (h *Handler) Dispatch(ctx context.Context, event radarr.Event) error {
	ctx = services.WithRequestID(ctx, h.newID())
	ctx = services.WithEvent(ctx, event.Kind.String())
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("radarr event received",
		logging.String("raw_kind", event.RawKind),
		logging.String("movie", event.MovieLabel()),
	)

	h.library.ResetScanned()

	var err error
	switch event.Kind {
	case radarr.KindGrab:
		h.notify(ctx, h.toggles.OnGrab, titleGrab, event.MovieLabel())
	case radarr.KindDownload:
		if event.IsUpgrade {
			err = h.downloadUpgrade(ctx, event)
		} else {
			err = h.downloadNew(ctx, event)
		}
	case radarr.KindRename:
		err = h.rename(ctx, event)
	case radarr.KindMovieFileDelete:
		err = h.deleteMovieFile(ctx, event)
	case radarr.KindMovieDelete:
		err = h.deleteMovie(ctx, event)
	case radarr.KindMovieAdded:
		h.notify(ctx, h.toggles.OnMovieAdd, titleMovieAdded, event.MovieLabel())
	case radarr.KindHealthIssue:
		h.notify(ctx, h.toggles.OnHealthIssue, titleHealthIssue, event.HealthIssueMessage)
	case radarr.KindHealthRestored:
		h.notify(ctx, h.toggles.OnHealthRestored, titleHealthRestored, event.HealthRestoredMessage+" Resolved")
	case radarr.KindApplicationUpdate:
		h.notify(ctx, h.toggles.OnApplicationUpdate, titleApplicationUpdate, event.UpdateMessage)
	case radarr.KindManualInteractionRequired:
		h.notify(ctx, h.toggles.OnManualInteractionRequired, titleManualInteraction, "Radarr needs help with "+event.MovieLabel())
	case radarr.KindTest:
		h.notify(ctx, h.toggles.OnTest, titleTest, "Test Passed")
	default:
		logging.WarnWithContext(logger, "unhandled radarr event", "unknown_event",
			logging.String("raw_kind", event.RawKind),
			logging.String(logging.FieldErrorHint, "check the custom script event type sent by Radarr"),
			logging.String(logging.FieldImpact, "event ignored"),
		)
	}

	if err != nil {
		if services.IsWorkflowFatal(err) {
			logging.Critical(ctx, logger, "event aborted", logging.Error(err))
		} else {
			logging.ErrorWithContext(logger, "event did not complete", "event_incomplete",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check host reachability and rerun the event"),
			)
		}
		return err
	}
	logger.Info("radarr event handled")
	return nil
}

func (h *Handler) notify(ctx context.Context, enabled bool, title, message string) {
	if !enabled {
		logging.WithContext(ctx, h.logger).Info("notification disabled, skipping", logging.String("title", title))
		return
	}
	h.library.Notify(ctx, title, message)
}

func (h *Handler) notifyEach(ctx context.Context, enabled bool, title string, movies []kodi.Movie) {
	if !enabled {
		logging.WithContext(ctx, h.logger).Info("notification disabled, skipping", logging.String("title", title))
		return
	}
	for _, movie := range movies {
		h.library.Notify(ctx, title, movie.String())
	}
}
