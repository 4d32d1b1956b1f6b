package events

import (
	"context"
	"path/filepath"

	"kodarr/internal/logging"
	"kodarr/internal/radarr"
	"kodarr/internal/services"
	"kodarr/internal/services/kodi"
)

// Notification titles.
const (
	titleGrab              = "Radarr - Attempting Download"
	titleDownloadNew       = "Radarr - Downloaded New Movie"
	titleDownloadUpgrade   = "Radarr - Upgraded Movie"
	titleRename            = "Radarr - Renamed Movie"
	titleDeletedFile       = "Radarr - Deleted Movie"
	titleMovieAdded        = "Radarr - Movie Added"
	titleMovieDeleted      = "Radarr - Movie Deleted"
	titleHealthIssue       = "Radarr - Health Issue"
	titleHealthRestored    = "Radarr - Health Restored"
	titleApplicationUpdate = "Radarr - Application Update"
	titleManualInteraction = "Radarr - Manual Interaction Required"
	titleTest              = "Radarr - Testing"
)

// Reasons shown to viewers whose playback was stopped.
const (
	reasonRename        = "Rename in progress. Please wait..."
	reasonUpgradeDelete = "Processing Upgrade. Please Wait..."
	reasonUpgrade       = "Upgrade in progress. Please wait..."
	reasonFileDeleted   = "Movie file deleted"
	reasonMovieDeleted  = "Movie deleted"
)

func (h *Handler) downloadNew(ctx context.Context, event radarr.Event) error {
	if err := h.waitForNFOs(ctx, event.MovieFilePath); err != nil {
		return err
	}
	added, err := h.scan(ctx, event)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		h.nothingScanned(ctx)
		return nil
	}
	h.library.UpdateGUIs(ctx)
	h.notifyEach(ctx, h.toggles.OnDownloadNew, titleDownloadNew, added)
	return nil
}

func (h *Handler) downloadUpgrade(ctx context.Context, event radarr.Event) error {
	return h.replace(ctx, event, replacement{
		oldPaths:  event.DeletedPaths,
		newPaths:  []string{event.MovieFilePath},
		reason:    reasonUpgrade,
		notify:    h.toggles.OnDownloadUpgrade,
		title:     titleDownloadUpgrade,
		operation: "upgrade",
	})
}

func (h *Handler) rename(ctx context.Context, event radarr.Event) error {
	return h.replace(ctx, event, replacement{
		oldPaths:  event.PreviousPaths,
		newPaths:  event.FilePaths,
		reason:    reasonRename,
		notify:    h.toggles.OnRename,
		title:     titleRename,
		operation: "rename",
	})
}

// replacement describes a workflow where library entries for old files are
// swapped for entries backed by new files.
type replacement struct {
	oldPaths  []string
	newPaths  []string
	reason    string
	notify    bool
	title     string
	operation string
}

func (h *Handler) replace(ctx context.Context, event radarr.Event, r replacement) error {
	old := h.moviesByFiles(ctx, r.oldPaths)
	h.library.StopPlayback(services.WithPhase(ctx, "stop"), old, r.reason, true)
	removed := h.library.RemoveMovies(services.WithPhase(ctx, "remove"), old)

	if err := h.waitForNFOs(ctx, r.newPaths...); err != nil {
		h.library.DiscardStopped(ctx)
		return err
	}
	if err := h.forceCleanIfNothingRemoved(ctx, r.operation, removed); err != nil {
		return err
	}

	added, err := h.scan(ctx, event)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		h.library.DiscardStopped(ctx)
		h.nothingScanned(ctx)
		return nil
	}

	if copied := h.library.Reconcile(services.WithPhase(ctx, "reconcile"), removed, added); copied > 0 {
		logging.WithContext(ctx, h.logger).Info("watched state carried over", logging.Int("entries", copied))
	}
	h.library.UpdateGUIs(ctx)
	h.library.StartPlayback(services.WithPhase(ctx, "restore"), added)
	h.notifyEach(ctx, r.notify, r.title, added)
	return nil
}

func (h *Handler) deleteMovieFile(ctx context.Context, event radarr.Event) error {
	old := h.library.MoviesByFile(ctx, event.MovieFilePath)
	if event.IsUpgradeDelete() {
		h.library.StopPlayback(services.WithPhase(ctx, "stop"), old, reasonUpgradeDelete, true)
		return nil
	}

	h.library.StopPlayback(services.WithPhase(ctx, "stop"), old, reasonFileDeleted, false)
	removed := h.library.RemoveMovies(services.WithPhase(ctx, "remove"), old)
	if err := h.forceCleanIfNothingRemoved(ctx, "file delete", removed); err != nil {
		return err
	}
	if err := h.cleanAfterUpdate(ctx); err != nil {
		return err
	}
	h.library.UpdateGUIs(ctx)
	h.notifyEach(ctx, h.toggles.OnDelete, titleDeletedFile, removed)
	return nil
}

func (h *Handler) deleteMovie(ctx context.Context, event radarr.Event) error {
	if !event.DeletedFiles {
		logging.WithContext(ctx, h.logger).Info("no files were deleted, library left untouched")
		return nil
	}
	movies := h.library.MoviesByDirectory(ctx, event.MovieDir)
	h.library.StopPlayback(services.WithPhase(ctx, "stop"), movies, reasonMovieDeleted, false)
	h.library.RemoveMovies(services.WithPhase(ctx, "remove"), movies)
	if err := h.cleanAfterUpdate(ctx); err != nil {
		return err
	}
	h.library.UpdateGUIs(ctx)
	h.notify(ctx, h.toggles.OnMovieDelete, titleMovieDeleted, event.MovieLabel())
	return nil
}

// scan runs a directory scan of the movie folder, falls back to a full scan
// when configured and nothing new turned up, then runs the optional clean.
func (h *Handler) scan(ctx context.Context, event radarr.Event) ([]kodi.Movie, error) {
	ctx = services.WithPhase(ctx, "scan")
	added, err := h.library.ScanDirectory(ctx, movieDirectory(event), h.settings.SkipActive)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 && h.settings.FullScanFallback {
		logging.WithContext(ctx, h.logger).Info("directory scan found nothing new, falling back to full scan")
		if added, err = h.library.FullScan(ctx, h.settings.SkipActive); err != nil {
			return nil, err
		}
	}
	if err := h.cleanAfterUpdate(ctx); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, h.logger).Info("scan complete", logging.Int("new_movies", len(added)))
	return added, nil
}

func (h *Handler) cleanAfterUpdate(ctx context.Context) error {
	if !h.settings.CleanAfterUpdate {
		return nil
	}
	return h.library.CleanLibrary(services.WithPhase(ctx, "clean"), h.settings.SkipActive)
}

// forceCleanIfNothingRemoved cleans the library when none of the old entries
// could be removed, unless a clean is already scheduled after the scan.
func (h *Handler) forceCleanIfNothingRemoved(ctx context.Context, operation string, removed []kodi.Movie) error {
	if len(removed) > 0 {
		return nil
	}
	logging.WarnWithContext(logging.WithContext(ctx, h.logger), "no old entries removed, library clean required", "clean_required",
		logging.String("operation", operation),
		logging.String(logging.FieldImpact, "watched state cannot be carried over"),
		logging.String(logging.FieldErrorHint, "stale entries are dropped by a library clean"),
	)
	if h.settings.CleanAfterUpdate {
		return nil
	}
	return h.library.CleanLibrary(services.WithPhase(ctx, "clean"), h.settings.SkipActive)
}

func (h *Handler) nothingScanned(ctx context.Context) {
	logging.WarnWithContext(logging.WithContext(ctx, h.logger), "no movies were scanned into the library", "nothing_scanned",
		logging.String(logging.FieldImpact, "no notification sent for this event"),
		logging.String(logging.FieldErrorHint, "check path_maps and that Kodi can see the movie folder"),
	)
}

func (h *Handler) moviesByFiles(ctx context.Context, paths []string) []kodi.Movie {
	var movies []kodi.Movie
	for _, path := range paths {
		movies = append(movies, h.library.MoviesByFile(ctx, path)...)
	}
	return movies
}

func movieDirectory(event radarr.Event) string {
	if event.MovieDir != "" {
		return event.MovieDir
	}
	if event.MovieFilePath != "" {
		return filepath.Dir(event.MovieFilePath)
	}
	return ""
}
