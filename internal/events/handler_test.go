package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodarr/internal/config"
	"kodarr/internal/events"
	"kodarr/internal/library"
	"kodarr/internal/playback"
	"kodarr/internal/radarr"
	"kodarr/internal/services"
	"kodarr/internal/services/kodi"
	"kodarr/internal/testsupport"
)

const (
	heatDir     = "/movies/Heat (1995)"
	heatOldFile = heatDir + "/Heat.mkv"
	heatNewFile = heatDir + "/Heat (1995) Bluray-1080p.mkv"
)

type fakeClock struct {
	now     time.Time
	sleeps  int
	onSleep func(n int)
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.sleeps++
	if c.onSleep != nil {
		c.onSleep(c.sleeps)
	}
	return ctx.Err()
}

type fixture struct {
	lib   *testsupport.FakeLibrary
	hosts []*testsupport.FakeHost
	store *playback.FileStore
	saves [][]playback.Record
	fs    afero.Fs
	clock *fakeClock
}

// recordingStore keeps every generation written to the preservation store.
type recordingStore struct {
	*playback.FileStore
	saves *[][]playback.Record
}

func (s recordingStore) Save(records []playback.Record) {
	*s.saves = append(*s.saves, append([]playback.Record(nil), records...))
	s.FileStore.Save(records)
}

func newFixture(t *testing.T, hostNames []string, movies ...kodi.Movie) *fixture {
	t.Helper()
	f := &fixture{
		lib:   testsupport.NewFakeLibrary(movies...),
		store: testsupport.NewMemoryStore(t),
		fs:    afero.NewMemMapFs(),
		clock: &fakeClock{now: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
	}
	for _, name := range hostNames {
		f.hosts = append(f.hosts, testsupport.NewFakeHost(name, f.lib))
	}
	return f
}

func (f *fixture) host(name string) *testsupport.FakeHost {
	for _, h := range f.hosts {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

func (f *fixture) handler(t *testing.T, opts ...testsupport.ConfigOption) *events.Handler {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	hosts := make([]library.Host, 0, len(f.hosts))
	for _, h := range f.hosts {
		hosts = append(hosts, h)
	}
	manager := library.NewManager(hosts, recordingStore{FileStore: f.store, saves: &f.saves},
		library.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		library.WithSettleDelay(0),
		library.WithRetryPolicy(library.RetryPolicy{MaxRounds: 3}),
	)
	return events.NewHandler(cfg, manager,
		events.WithFs(f.fs),
		events.WithClock(f.clock.Now),
		events.WithSleeper(f.clock.Sleep),
		events.WithNFOPollInterval(10*time.Second),
	)
}

func titles(notes []testsupport.Notification) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Title+": "+n.Message)
	}
	return out
}

func oldHeat() kodi.Movie {
	return kodi.Movie{
		File:  heatOldFile,
		Title: "Heat",
		Year:  1995,
		TMDB:  "949",
		Watched: kodi.WatchedState{
			PlayCount: 1,
			Resume:    kodi.ResumeState{Position: 3100, Total: 10200},
		},
	}
}

func newHeat() kodi.Movie {
	return kodi.Movie{File: heatNewFile, Title: "Heat", Year: 1995, TMDB: "949"}
}

func TestRenamePreservesPlaybackAndWatchedState(t *testing.T) {
	f := newFixture(t, []string{"living", "bedroom"}, oldHeat())
	old := f.lib.Movies()[0]
	living := f.host("living")
	bedroom := f.host("bedroom")
	living.Play(old, 42.5, true)
	f.lib.AddOnScan(newHeat())
	testsupport.WriteFile(t, f.fs, heatDir+"/Heat (1995) Bluray-1080p.nfo", "<movie/>")

	h := f.handler(t, testsupport.WithLibrary(func(l *config.Library) { l.WaitForNFO = true }))
	err := h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindRename,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		PreviousPaths: []string{heatOldFile},
		FilePaths:     []string{heatNewFile},
	})
	require.NoError(t, err)

	assert.Len(t, living.Stopped, 1)
	_, stillThere := f.lib.Movie(old.ID)
	assert.False(t, stillThere)

	movies := f.lib.Movies()
	require.Len(t, movies, 1)
	replacement := movies[0]
	assert.Equal(t, heatNewFile, replacement.File)
	assert.Equal(t, 1, replacement.Watched.PlayCount)
	assert.InDelta(t, 3100, replacement.Watched.Resume.Position, 0.001)

	require.Len(t, living.Started, 1)
	assert.Equal(t, testsupport.StartRequest{MovieID: replacement.ID, Position: 42.5}, living.Started[0])
	assert.Len(t, living.Paused, 1)
	assert.Empty(t, bedroom.Started)

	assert.Equal(t, []string{
		"Radarr - Stopped Playback: Rename in progress. Please wait...",
		"Radarr - Renamed Movie: Heat (1995)",
	}, titles(living.Notifications))
	assert.Equal(t, []string{"Radarr - Renamed Movie: Heat (1995)"}, titles(bedroom.Notifications))

	assert.Zero(t, living.CallCount("CleanLibrary"), "removal succeeded so no clean is forced")
	assert.Zero(t, living.GUIRefreshes)
	assert.Equal(t, 1, bedroom.GUIRefreshes)
	assert.Empty(t, f.store.LoadAndClear())
}

func TestRenameRestoresPlaybackStoppedOnEveryHost(t *testing.T) {
	cd1, cd2 := oldHeat(), oldHeat()
	cd1.File = heatDir + "/Heat.cd1.mkv"
	cd2.File = heatDir + "/Heat.cd2.mkv"
	f := newFixture(t, []string{"living", "bedroom"}, cd1, cd2)
	old := f.lib.Movies()
	living := f.host("living")
	bedroom := f.host("bedroom")
	living.Play(old[0], 42.5, true)
	bedroom.Play(old[1], 42.5, true)

	part1, part2 := newHeat(), newHeat()
	part1.File = heatDir + "/Heat (1995) Part 1.mkv"
	part2.File = heatDir + "/Heat (1995) Part 2.mkv"
	f.lib.AddOnScan(part1, part2)

	h := f.handler(t)
	err := h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindRename,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		PreviousPaths: []string{cd1.File, cd2.File},
		FilePaths:     []string{part1.File, part2.File},
	})
	require.NoError(t, err)

	require.Len(t, f.saves, 1, "both stopped players land in one generation")
	records := f.saves[0]
	require.Len(t, records, 2)
	assert.ElementsMatch(t, []string{"living", "bedroom"}, []string{records[0].Host, records[1].Host})
	for _, r := range records {
		assert.InDelta(t, 42.5, r.Position, 0.001)
		assert.True(t, r.Paused)
	}
	assert.Len(t, living.Stopped, 1)
	assert.Len(t, bedroom.Stopped, 1)

	added := f.lib.Movies()
	require.Len(t, added, 2)
	require.Len(t, living.Started, 1)
	require.Len(t, bedroom.Started, 1)
	assert.InDelta(t, 42.5, living.Started[0].Position, 0.001)
	assert.InDelta(t, 42.5, bedroom.Started[0].Position, 0.001)
	assert.ElementsMatch(t,
		[]int{added[0].ID, added[1].ID},
		[]int{living.Started[0].MovieID, bedroom.Started[0].MovieID},
		"each new entry is replayed once",
	)
	assert.Len(t, living.Paused, 1)
	assert.Len(t, bedroom.Paused, 1)
	assert.Empty(t, f.store.LoadAndClear())
}

func TestUpgradeDeleteStopsThenDownloadRestores(t *testing.T) {
	f := newFixture(t, []string{"living"}, oldHeat())
	old := f.lib.Movies()[0]
	living := f.host("living")
	living.Play(old, 61, false)

	h := f.handler(t)
	ctx := context.Background()
	require.NoError(t, h.Dispatch(ctx, radarr.Event{
		Kind:          radarr.KindMovieFileDelete,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		MovieFilePath: heatOldFile,
		DeleteReason:  "Upgrade",
	}))

	assert.Len(t, living.Stopped, 1)
	assert.Zero(t, living.CallCount("RemoveMovie:"), "upgrade deletes only stop playback")
	assert.Zero(t, living.CallCount("ScanDirectory:"))
	assert.Equal(t, []string{"Radarr - Stopped Playback: Processing Upgrade. Please Wait..."}, titles(living.Notifications))

	f.lib.AddOnScan(newHeat())
	require.NoError(t, h.Dispatch(ctx, radarr.Event{
		Kind:          radarr.KindDownload,
		IsUpgrade:     true,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		MovieFilePath: heatNewFile,
		DeletedPaths:  []string{heatOldFile},
	}))

	movies := f.lib.Movies()
	require.Len(t, movies, 1)
	assert.Equal(t, 1, movies[0].Watched.PlayCount)
	require.Len(t, living.Started, 1)
	assert.Equal(t, testsupport.StartRequest{MovieID: movies[0].ID, Position: 61}, living.Started[0])
	assert.Empty(t, living.Paused)
	assert.Contains(t, titles(living.Notifications), "Radarr - Upgraded Movie: Heat (1995)")
}

func TestDownloadWithNothingNewIsTerminal(t *testing.T) {
	f := newFixture(t, []string{"living", "bedroom"})
	h := f.handler(t, testsupport.WithLibrary(func(l *config.Library) { l.FullScanFallback = true }))

	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindDownload,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		MovieFilePath: heatNewFile,
	}))

	living := f.host("living")
	assert.Equal(t, 1, living.CallCount("ScanDirectory:"+heatDir))
	assert.Equal(t, 1, living.CallCount("FullScan"))
	for _, host := range f.hosts {
		assert.Empty(t, host.Notifications, host.Name())
		assert.Zero(t, host.GUIRefreshes, host.Name())
	}
}

func TestDownloadNewNotifiesPerEntryUnlessDisabled(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		want    []string
	}{
		{name: "enabled", enabled: true, want: []string{"Radarr - Downloaded New Movie: Heat (1995)"}},
		{name: "disabled", enabled: false, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []string{"living", "bedroom"})
			f.lib.AddOnScan(newHeat())
			h := f.handler(t, testsupport.WithNotifications(func(n *config.Notifications) { n.OnDownloadNew = tc.enabled }))

			require.NoError(t, h.Dispatch(context.Background(), radarr.Event{
				Kind:          radarr.KindDownload,
				MovieTitle:    "Heat",
				MovieYear:     1995,
				MovieDir:      heatDir,
				MovieFilePath: heatNewFile,
			}))

			assert.Len(t, f.lib.Movies(), 1)
			assert.Equal(t, tc.want, titles(f.host("bedroom").Notifications))
			assert.Equal(t, 1, f.host("bedroom").GUIRefreshes)
			assert.Zero(t, f.host("living").CallCount("FullScan"))
		})
	}
}

func TestRenameForcesCleanWhenNothingRemoved(t *testing.T) {
	cases := []struct {
		name             string
		cleanAfterUpdate bool
		wantCleanFirst   bool
	}{
		{name: "forced before scan", cleanAfterUpdate: false, wantCleanFirst: true},
		{name: "scheduled after scan", cleanAfterUpdate: true, wantCleanFirst: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []string{"living"}, oldHeat())
			living := f.host("living")
			living.FailRemove = true
			f.lib.MarkMissing(heatOldFile)
			f.lib.AddOnScan(newHeat())
			h := f.handler(t, testsupport.WithLibrary(func(l *config.Library) { l.CleanAfterUpdate = tc.cleanAfterUpdate }))

			require.NoError(t, h.Dispatch(context.Background(), radarr.Event{
				Kind:          radarr.KindRename,
				MovieTitle:    "Heat",
				MovieYear:     1995,
				MovieDir:      heatDir,
				PreviousPaths: []string{heatOldFile},
				FilePaths:     []string{heatNewFile},
			}))

			assert.Equal(t, 1, living.CallCount("CleanLibrary"))
			cleanAt, scanAt := -1, -1
			for i, call := range living.Calls {
				switch {
				case call == "CleanLibrary":
					cleanAt = i
				case strings.HasPrefix(call, "ScanDirectory:"):
					scanAt = i
				}
			}
			assert.Equal(t, tc.wantCleanFirst, cleanAt < scanAt)

			movies := f.lib.Movies()
			require.Len(t, movies, 1)
			assert.Zero(t, movies[0].Watched.PlayCount, "nothing removed so nothing to carry over")
		})
	}
}

func TestNFOTimeoutAbortsEvent(t *testing.T) {
	f := newFixture(t, []string{"living"}, oldHeat())
	f.host("living").Play(f.lib.Movies()[0], 10, false)
	f.lib.AddOnScan(newHeat())
	h := f.handler(t, testsupport.WithLibrary(func(l *config.Library) {
		l.WaitForNFO = true
		l.NFOTimeoutMinutes = 1
	}))

	err := h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindRename,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		PreviousPaths: []string{heatOldFile},
		FilePaths:     []string{heatNewFile},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNFOTimeout))
	assert.Equal(t, 6, f.clock.sleeps)

	living := f.host("living")
	assert.Len(t, living.Stopped, 1)
	assert.Zero(t, living.CallCount("ScanDirectory:"))
	assert.Empty(t, living.Started)
	assert.Empty(t, f.store.LoadAndClear(), "stopped playback is discarded with the event")
	assert.Equal(t, []string{"Radarr - Stopped Playback: Rename in progress. Please wait..."}, titles(living.Notifications))
}

func TestNFOWaitProceedsOnceFileAppears(t *testing.T) {
	f := newFixture(t, []string{"living"})
	f.lib.AddOnScan(newHeat())
	f.clock.onSleep = func(n int) {
		if n == 3 {
			testsupport.WriteFile(t, f.fs, heatDir+"/Heat (1995) Bluray-1080p.nfo", "<movie/>")
		}
	}
	h := f.handler(t, testsupport.WithLibrary(func(l *config.Library) { l.WaitForNFO = true }))

	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindDownload,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		MovieFilePath: heatNewFile,
	}))
	assert.Equal(t, 3, f.clock.sleeps)
	assert.Len(t, f.lib.Movies(), 1)
}

func TestMovieFileDeleteRemovesAndNotifies(t *testing.T) {
	f := newFixture(t, []string{"living", "bedroom"}, oldHeat())
	bedroom := f.host("bedroom")
	bedroom.Play(f.lib.Movies()[0], 75, false)
	h := f.handler(t)

	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindMovieFileDelete,
		MovieTitle:    "Heat",
		MovieYear:     1995,
		MovieDir:      heatDir,
		MovieFilePath: heatOldFile,
		DeleteReason:  "Manual",
	}))

	assert.Empty(t, f.lib.Movies())
	assert.Len(t, bedroom.Stopped, 1)
	assert.Empty(t, f.store.LoadAndClear(), "plain deletes keep nothing for restart")
	assert.Equal(t, []string{
		"Radarr - Stopped Playback: Movie file deleted",
		"Radarr - Deleted Movie: Heat (1995)",
	}, titles(bedroom.Notifications))
	assert.Zero(t, f.host("living").CallCount("CleanLibrary"))
	assert.Zero(t, f.host("living").GUIRefreshes, "living removed the entry")
	assert.Equal(t, 1, bedroom.GUIRefreshes)
}

func TestMovieDeleteOnlyActsWhenFilesWereDeleted(t *testing.T) {
	f := newFixture(t, []string{"living"}, oldHeat())
	living := f.host("living")
	h := f.handler(t)
	event := radarr.Event{Kind: radarr.KindMovieDelete, MovieTitle: "Heat", MovieYear: 1995, MovieDir: heatDir}

	require.NoError(t, h.Dispatch(context.Background(), event))
	assert.Len(t, f.lib.Movies(), 1)
	assert.Empty(t, living.Notifications)

	event.DeletedFiles = true
	require.NoError(t, h.Dispatch(context.Background(), event))
	assert.Empty(t, f.lib.Movies())
	assert.Equal(t, []string{"Radarr - Movie Deleted: Heat (1995)"}, titles(living.Notifications))
}

func TestNotificationOnlyEvents(t *testing.T) {
	cases := []struct {
		name  string
		event radarr.Event
		want  string
	}{
		{"grab", radarr.Event{Kind: radarr.KindGrab, MovieTitle: "Heat", MovieYear: 1995}, "Radarr - Attempting Download: Heat (1995)"},
		{"movie added", radarr.Event{Kind: radarr.KindMovieAdded, MovieTitle: "Heat", MovieYear: 1995}, "Radarr - Movie Added: Heat (1995)"},
		{"health issue", radarr.Event{Kind: radarr.KindHealthIssue, HealthIssueMessage: "Indexers unavailable"}, "Radarr - Health Issue: Indexers unavailable"},
		{"health restored", radarr.Event{Kind: radarr.KindHealthRestored, HealthRestoredMessage: "Indexers unavailable"}, "Radarr - Health Restored: Indexers unavailable Resolved"},
		{"application update", radarr.Event{Kind: radarr.KindApplicationUpdate, UpdateMessage: "Radarr updated to 5.2"}, "Radarr - Application Update: Radarr updated to 5.2"},
		{"manual interaction", radarr.Event{Kind: radarr.KindManualInteractionRequired, MovieTitle: "Heat", MovieYear: 1995}, "Radarr - Manual Interaction Required: Radarr needs help with Heat (1995)"},
		{"test", radarr.Event{Kind: radarr.KindTest}, "Radarr - Testing: Test Passed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []string{"living"})
			h := f.handler(t)
			require.NoError(t, h.Dispatch(context.Background(), tc.event))
			assert.Equal(t, []string{tc.want}, titles(f.host("living").Notifications))
			assert.Empty(t, f.host("living").Calls)
		})
	}
}

func TestDisabledToggleSkipsNotification(t *testing.T) {
	f := newFixture(t, []string{"living"})
	h := f.handler(t, testsupport.WithNotifications(func(n *config.Notifications) { n.OnTest = false }))
	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{Kind: radarr.KindTest}))
	assert.Empty(t, f.host("living").Notifications)
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t, []string{"living"})
	h := f.handler(t)
	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{Kind: radarr.KindUnknown, RawKind: "SeriesAdd"}))
	assert.Empty(t, f.host("living").Notifications)
	assert.Empty(t, f.host("living").Calls)
}

func TestDispatchTagsLogsWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, []string{"living"})
	cfg := testsupport.NewConfig(t)
	manager := library.NewManager([]library.Host{f.host("living")}, nil)
	h := events.NewHandler(cfg, manager,
		events.WithLogger(logger),
		events.WithCorrelationIDs(func() string { return "evt-1" }),
	)

	require.NoError(t, h.Dispatch(context.Background(), radarr.Event{Kind: radarr.KindTest}))
	out := buf.String()
	assert.Contains(t, out, `"correlation_id":"evt-1"`)
	assert.Contains(t, out, `"event":"Test"`)
	assert.Contains(t, out, `"component":"events"`)
}

func TestDispatchStopsWhenNoHostCanScan(t *testing.T) {
	f := newFixture(t, []string{"living"})
	f.host("living").Unreachable = true
	h := f.handler(t)

	err := h.Dispatch(context.Background(), radarr.Event{
		Kind:          radarr.KindDownload,
		MovieDir:      heatDir,
		MovieFilePath: heatNewFile,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrRetriesExhausted))
	assert.False(t, services.IsWorkflowFatal(err))
}
