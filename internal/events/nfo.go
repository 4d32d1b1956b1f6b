package events

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"kodarr/internal/logging"
	"kodarr/internal/services"
)

// nfoPath returns the companion metadata file for a movie file.
func nfoPath(movieFile string) string {
	return strings.TrimSuffix(movieFile, filepath.Ext(movieFile)) + ".nfo"
}

// waitForNFOs blocks until every movie file's NFO exists, when configured.
// Each file gets the full configured timeout.
func (h *Handler) waitForNFOs(ctx context.Context, movieFiles ...string) error {
	if !h.settings.WaitForNFO {
		return nil
	}
	ctx = services.WithPhase(ctx, "nfo_wait")
	timeout := time.Duration(h.settings.NFOTimeoutMinutes) * time.Minute
	for _, file := range movieFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := h.waitForNFO(ctx, nfoPath(file), timeout); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) waitForNFO(ctx context.Context, path string, timeout time.Duration) error {
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("waiting for nfo file", logging.Path(path), logging.Duration("timeout", timeout))
	start := h.now()
	for {
		exists, err := afero.Exists(h.fs, path)
		if err != nil {
			logger.Debug("nfo check failed", logging.Path(path), logging.Error(err))
		}
		if exists {
			logger.Info("nfo file found", logging.Path(path), logging.Duration("elapsed", h.now().Sub(start)))
			return nil
		}
		elapsed := h.now().Sub(start)
		if elapsed >= timeout {
			return services.Wrap(services.ErrNFOTimeout, "events", "wait for nfo",
				fmt.Sprintf("%s missing after %s", path, elapsed.Round(time.Second)), nil)
		}
		if err := h.sleep(ctx, h.nfoPoll); err != nil {
			return err
		}
	}
}
