package library

import (
	"context"

	"kodarr/internal/logging"
	"kodarr/internal/playback"
	"kodarr/internal/services/kodi"
)

// StopPlayback stops every movie player showing one of movies, on every host.
// Captured positions are written to the preservation store in one save when
// store is true. After a settle delay the originating hosts receive a forced
// notification carrying reason.
func (m *Manager) StopPlayback(ctx context.Context, movies []kodi.Movie, reason string, store bool) []playback.Record {
	if len(movies) == 0 {
		return nil
	}
	logger := m.log(ctx)
	var records []playback.Record
	for _, host := range m.hosts {
		for _, player := range host.ActivePlayers(ctx) {
			item := host.PlayerItem(ctx, player.ID)
			if item == nil || !item.IsMovie() {
				continue
			}
			movie, ok := matchPlaying(*item, movies)
			if !ok {
				continue
			}
			paused := host.IsPaused(ctx, player.ID)
			position := host.PlayerPercent(ctx, player.ID)
			logger.Info("stopping playback",
				logging.String(logging.FieldHost, host.Name()),
				logging.String("movie", movie.String()),
				logging.Float64("position", position),
				logging.Bool("paused", paused),
			)
			host.StopPlayer(ctx, player.ID)
			records = append(records, playback.Record{
				Host:     host.Name(),
				Movie:    movie,
				Position: position,
				Paused:   paused,
			})
		}
	}
	if len(records) == 0 {
		return nil
	}

	if store {
		m.store.Save(records)
	}

	if err := m.sleep(ctx, m.settle); err != nil {
		return records
	}

	notified := make(map[string]bool, len(records))
	for _, host := range m.hosts {
		for _, record := range records {
			if record.Host != host.Name() || notified[host.Name()] {
				continue
			}
			host.Notify(ctx, kodi.NotificationTitleStopped, reason, true)
			notified[host.Name()] = true
		}
	}
	return records
}

// matchPlaying finds the affected entry a player is showing, by file path first
// and then by library id.
func matchPlaying(item kodi.PlayerItem, movies []kodi.Movie) (kodi.Movie, bool) {
	if item.File != "" {
		for _, movie := range movies {
			if movie.File != "" && movie.File == item.File {
				return movie, true
			}
		}
	}
	for _, movie := range movies {
		if movie.ID == item.ID {
			return movie, true
		}
	}
	return kodi.Movie{}, false
}

// StartPlayback restarts stored playback whose host and stable identifier
// match one of the newly added entries, pausing it again when it was paused.
// Each record restarts one entry. When several new entries share a stable
// identifier, records take entries no earlier record restarted. The store is
// consumed whether or not anything matched.
func (m *Manager) StartPlayback(ctx context.Context, added []kodi.Movie) int {
	records := m.store.LoadAndClear()
	if len(records) == 0 {
		return 0
	}
	logger := m.log(ctx)
	restored := make([]bool, len(added))
	started := 0
	for _, host := range m.hosts {
		for _, record := range records {
			if record.Host != host.Name() {
				continue
			}
			for _, i := range restartCandidates(record, added, restored) {
				movie := added[i]
				logger.Info("restarting stopped playback",
					logging.String(logging.FieldHost, host.Name()),
					logging.String("movie", movie.String()),
					logging.Float64("position", record.Position),
				)
				player := host.StartMovie(ctx, movie.ID, record.Position)
				if player == nil {
					continue
				}
				restored[i] = true
				started++
				if record.Paused {
					host.PausePlayer(ctx, player.ID)
				}
				break
			}
		}
	}
	if started < len(records) {
		logger.Debug("stopped playback not restored", logging.Int("records", len(records)), logging.Int("restarted", started))
	}
	return started
}

// restartCandidates lists the indexes of added entries matching record, with
// entries not yet restarted first.
func restartCandidates(record playback.Record, added []kodi.Movie, restored []bool) []int {
	var fresh, reused []int
	for i, movie := range added {
		if !record.Movie.SameMovie(movie) {
			continue
		}
		if restored[i] {
			reused = append(reused, i)
		} else {
			fresh = append(fresh, i)
		}
	}
	return append(fresh, reused...)
}

// DiscardStopped drops any unconsumed preservation records.
func (m *Manager) DiscardStopped(ctx context.Context) {
	if records := m.store.LoadAndClear(); len(records) > 0 {
		m.log(ctx).Info("discarding stopped playback", logging.Int("records", len(records)))
	}
}
