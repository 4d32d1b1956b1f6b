package library

import (
	"context"
	"fmt"

	"kodarr/internal/logging"
	"kodarr/internal/services/kodi"
)

// ScanDirectory scans directory on the first available host, retrying the
// whole host list until one succeeds, and returns the entries the scan added.
func (m *Manager) ScanDirectory(ctx context.Context, directory string, skipActive bool) ([]kodi.Movie, error) {
	before := m.directoryCatalog(ctx, directory)
	err := m.untilSuccess(ctx, "directory scan", skipActive, func(host Host) bool {
		return host.ScanDirectory(ctx, directory)
	})
	if err != nil {
		return nil, err
	}
	after := m.directoryCatalog(ctx, directory)
	added := diff(before, after)
	m.log(ctx).Info("directory scan finished",
		logging.String("directory", directory),
		logging.Int("before", len(before.movies)),
		logging.Int("after", len(after.movies)),
		logging.Int("added", len(added)),
	)
	return added, nil
}

// FullScan scans the whole library and returns the entries the scan added.
func (m *Manager) FullScan(ctx context.Context, skipActive bool) ([]kodi.Movie, error) {
	before := m.fullCatalog(ctx)
	err := m.untilSuccess(ctx, "full scan", skipActive, func(host Host) bool {
		return host.FullScan(ctx)
	})
	if err != nil {
		return nil, err
	}
	after := m.fullCatalog(ctx)
	added := diff(before, after)
	m.log(ctx).Info("full scan finished", logging.Int("added", len(added)))
	return added, nil
}

// CleanLibrary cleans the library on the first available host, retrying the
// whole host list until one succeeds.
func (m *Manager) CleanLibrary(ctx context.Context, skipActive bool) error {
	return m.untilSuccess(ctx, "library clean", skipActive, func(host Host) bool {
		return host.CleanLibrary(ctx)
	})
}

// untilSuccess tries hosts in priority order and repeats the whole list after
// the retry interval until one attempt succeeds. It only gives up when ctx is
// done or a bounded policy runs out of rounds.
func (m *Manager) untilSuccess(ctx context.Context, operation string, skipActive bool, attempt func(Host) bool) error {
	if len(m.hosts) == 0 {
		return fmt.Errorf("%s: %w", operation, ErrNoHosts)
	}
	logger := m.log(ctx)
	for round := 1; ; round++ {
		for _, host := range m.hosts {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", operation, err)
			}
			if skipActive && host.IsPlaying(ctx) {
				logger.Info("skipping active host", logging.String(logging.FieldHost, host.Name()), logging.String("operation", operation))
				continue
			}
			if attempt(host) {
				return nil
			}
		}
		if m.retry.MaxRounds > 0 && round >= m.retry.MaxRounds {
			return fmt.Errorf("%s after %d rounds: %w", operation, round, ErrRetriesExhausted)
		}
		logging.WarnWithContext(logger, "no host completed operation, retrying", "retry_round",
			logging.String("operation", operation),
			logging.Int("round", round),
			logging.Duration("interval", m.retry.Interval),
			logging.String(logging.FieldErrorHint, "check host reachability or stop playback on busy hosts"),
			logging.String(logging.FieldImpact, "event blocked until a host completes the operation"),
		)
		if err := m.sleep(ctx, m.retry.Interval); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
	}
}
