package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kodarr/internal/logging"
	"kodarr/internal/playback"
	"kodarr/internal/services/kodi"
)

const (
	defaultRetryInterval = 5 * time.Second
	defaultSettleDelay   = 2 * time.Second
)

var (
	// ErrNoHosts reports a coordinator with nothing to drive.
	ErrNoHosts          = errors.New("no kodi hosts available")
	// ErrRetriesExhausted reports a bounded retry policy running out of rounds.
	ErrRetriesExhausted = errors.New("no host completed the operation")
)

// RetryPolicy controls how scan and clean attempts cycle through the host
// list. MaxRounds of zero retries until a host succeeds or ctx is done.
type RetryPolicy struct {
	Interval  time.Duration
	MaxRounds int
}

// DefaultRetryPolicy retries every five seconds without bound.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: defaultRetryInterval}
}

// Manager coordinates library work across hosts.
type Manager struct {
	hosts  []Host
	store  playback.Store
	logger *slog.Logger
	retry  RetryPolicy
	settle time.Duration
	sleep  kodi.Sleeper
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "library")
		}
	}
}

// WithRetryPolicy overrides the scan and clean retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(m *Manager) {
		if policy.Interval < 0 {
			policy.Interval = 0
		}
		m.retry = policy
	}
}

// WithSettleDelay overrides the pause between stopping playback and sending
// the stop notification.
func WithSettleDelay(delay time.Duration) Option {
	return func(m *Manager) {
		if delay >= 0 {
			m.settle = delay
		}
	}
}

// WithSleeper replaces the wait function used between retries.
func WithSleeper(sleep kodi.Sleeper) Option {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// NewManager coordinates hosts, which must already be in priority order.
func NewManager(hosts []Host, store playback.Store, opts ...Option) *Manager {
	if store == nil {
		store = discardStore{}
	}
	m := &Manager{
		hosts:  hosts,
		store:  store,
		logger: logging.NewComponentLogger(nil, "library"),
		retry:  DefaultRetryPolicy(),
		settle: defaultSettleDelay,
		sleep:  kodi.SleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResetScanned clears every host's scanned flag.
func (m *Manager) ResetScanned() {
	for _, host := range m.hosts {
		host.ResetScanned()
	}
}

// Close releases every host session.
func (m *Manager) Close() error {
	var errs []error
	for _, host := range m.hosts {
		if err := host.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", host.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, m.logger)
}

// Notify sends a notification to every host, honouring per-host suppression.
func (m *Manager) Notify(ctx context.Context, title, message string) {
	for _, host := range m.hosts {
		host.Notify(ctx, title, message, false)
	}
}

// UpdateGUIs refreshes every host that did not mutate the library during this event.
func (m *Manager) UpdateGUIs(ctx context.Context) {
	for _, host := range m.hosts {
		if host.Scanned() {
			continue
		}
		host.UpdateGUI(ctx)
	}
}

// AllMovies returns the first non-empty full catalog.
func (m *Manager) AllMovies(ctx context.Context) []kodi.Movie {
	return m.fullCatalog(ctx).movies
}

// MoviesByDirectory returns the first non-empty answer for directory.
func (m *Manager) MoviesByDirectory(ctx context.Context, directory string) []kodi.Movie {
	return m.directoryCatalog(ctx, directory).movies
}

// MoviesByFile returns the first non-empty answer for file.
func (m *Manager) MoviesByFile(ctx context.Context, file string) []kodi.Movie {
	return m.firstNonEmpty(func(h Host) []kodi.Movie { return h.MoviesByFile(ctx, file) }).movies
}

// catalog is one host's answer to a catalog query.
type catalog struct {
	host   string
	movies []kodi.Movie
}

func (m *Manager) fullCatalog(ctx context.Context) catalog {
	m.log(ctx).Info("querying full catalog, this may take a moment")
	return m.firstNonEmpty(func(h Host) []kodi.Movie { return h.AllMovies(ctx) })
}

func (m *Manager) directoryCatalog(ctx context.Context, directory string) catalog {
	return m.firstNonEmpty(func(h Host) []kodi.Movie { return h.MoviesByDirectory(ctx, directory) })
}

func (m *Manager) firstNonEmpty(query func(Host) []kodi.Movie) catalog {
	for _, host := range m.hosts {
		if movies := query(host); len(movies) > 0 {
			return catalog{host: host.Name(), movies: movies}
		}
	}
	return catalog{}
}

// RemoveMovie removes an entry on the first host that accepts it.
func (m *Manager) RemoveMovie(ctx context.Context, movie kodi.Movie) bool {
	m.log(ctx).Info("removing movie", logging.String("movie", movie.String()), logging.MovieID(movie.ID))
	for _, host := range m.hosts {
		if host.RemoveMovie(ctx, movie.ID) {
			return true
		}
	}
	return false
}

// RemoveMovies removes each entry and returns the ones actually removed.
func (m *Manager) RemoveMovies(ctx context.Context, movies []kodi.Movie) []kodi.Movie {
	removed := make([]kodi.Movie, 0, len(movies))
	for _, movie := range movies {
		if m.RemoveMovie(ctx, movie) {
			removed = append(removed, movie)
		}
	}
	return removed
}

// CopyMetadata applies old's watched state to target on the first host that accepts it.
func (m *Manager) CopyMetadata(ctx context.Context, old, target kodi.Movie) bool {
	m.log(ctx).Info("applying watched state to new entry",
		logging.String("movie", target.String()),
		logging.MovieID(target.ID),
		logging.String("state", old.Watched.String()),
	)
	for _, host := range m.hosts {
		if host.SetWatchedState(ctx, target.ID, old.Watched) {
			return true
		}
	}
	return false
}

// Reconcile copies watched state from every removed entry to each added entry
// sharing its stable identifier. Returns the number of copies applied.
func (m *Manager) Reconcile(ctx context.Context, removed, added []kodi.Movie) int {
	copied := 0
	for _, old := range removed {
		for _, target := range added {
			if !old.SameMovie(target) {
				continue
			}
			if m.CopyMetadata(ctx, old, target) {
				copied++
			}
		}
	}
	return copied
}

// diff returns the entries of after that have no counterpart in before.
// Library ids only identify an entry within one host's database, so they are
// compared only when both snapshots came from the same host. Otherwise
// entries match by stable identifier.
func diff(before, after catalog) []kodi.Movie {
	same := kodi.Movie.SameStableEntry
	if before.host != "" && before.host == after.host {
		same = kodi.Movie.SameEntry
	}
	var added []kodi.Movie
	for _, candidate := range after.movies {
		known := false
		for _, existing := range before.movies {
			if same(candidate, existing) {
				known = true
				break
			}
		}
		if !known {
			added = append(added, candidate)
		}
	}
	return added
}

type discardStore struct{}

func (discardStore) Save([]playback.Record) {}
func (discardStore) LoadAndClear() []playback.Record { return nil }
