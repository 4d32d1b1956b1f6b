package library_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodarr/internal/library"
	"kodarr/internal/playback"
	"kodarr/internal/services/kodi"
	"kodarr/internal/testsupport"
)

func instantSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newManager(t *testing.T, store playback.Store, hosts ...*testsupport.FakeHost) *library.Manager {
	t.Helper()
	list := make([]library.Host, 0, len(hosts))
	for _, h := range hosts {
		list = append(list, h)
	}
	return library.NewManager(list, store,
		library.WithSleeper(instantSleep),
		library.WithSettleDelay(0),
	)
}

func heat(file string) kodi.Movie {
	return kodi.Movie{File: file, Title: "Heat", Year: 1995, TMDB: "949"}
}

func TestScanDirectoryRetriesUntilAHostSucceeds(t *testing.T) {
	lib := testsupport.NewFakeLibrary(kodi.Movie{File: "/movies/Alien (1979)/alien.mkv", Title: "Alien", TMDB: "348"})
	lib.AddOnScan(heat("/movies/Heat (1995)/Heat.mkv"))

	down := testsupport.NewFakeHost("down", lib)
	down.Unreachable = true
	flaky := testsupport.NewFakeHost("flaky", lib)
	flaky.ScanFailures = 2

	m := newManager(t, nil, down, flaky)
	added, err := m.ScanDirectory(context.Background(), "/movies/Heat (1995)", false)
	require.NoError(t, err)

	require.Len(t, added, 1)
	assert.Equal(t, "949", added[0].StableID())
	assert.Equal(t, 3, flaky.CallCount("ScanDirectory:"))
	assert.Equal(t, 3, down.CallCount("ScanDirectory:"))
	assert.True(t, flaky.Scanned())
	assert.False(t, down.Scanned())
}

// darkAfterScan fails its scan and stops answering afterwards, so the catalog
// snapshots around the scan come from different hosts.
type darkAfterScan struct {
	*testsupport.FakeHost
}

func (h darkAfterScan) ScanDirectory(ctx context.Context, directory string) bool {
	h.FakeHost.ScanDirectory(ctx, directory)
	h.Unreachable = true
	return false
}

func TestScanDirectoryDiffsAcrossHostsByStableID(t *testing.T) {
	livingLib := testsupport.NewFakeLibrary(heat("/movies/Heat (1995)/Heat.mkv"))
	bedroomHeat := heat("/movies/Heat (1995)/Heat.mkv")
	bedroomHeat.ID = 300
	bedroomLib := testsupport.NewFakeLibrary(bedroomHeat)
	bedroomLib.AddOnScan(kodi.Movie{File: "/movies/Ronin (1998)/Ronin.mkv", Title: "Ronin", TMDB: "8195"})

	living := testsupport.NewFakeHost("living", livingLib)
	bedroom := testsupport.NewFakeHost("bedroom", bedroomLib)
	require.Equal(t, 101, livingLib.Movies()[0].ID)

	m := library.NewManager([]library.Host{darkAfterScan{living}, bedroom}, nil,
		library.WithSleeper(instantSleep),
		library.WithSettleDelay(0),
	)
	added, err := m.ScanDirectory(context.Background(), "/movies", false)
	require.NoError(t, err)

	require.Len(t, added, 1, "Heat exists on both hosts under unrelated library ids")
	assert.Equal(t, "Ronin", added[0].Title)
	assert.Equal(t, 101, added[0].ID, "Ronin reuses the id Heat has on the other host")
	assert.True(t, bedroom.Scanned())
}

func TestScanDirectoryStopsAtFirstSuccessfulHostInPriorityOrder(t *testing.T) {
	lib := testsupport.NewFakeLibrary()
	first := testsupport.NewFakeHost("first", lib)
	second := testsupport.NewFakeHost("second", lib)

	m := newManager(t, nil, first, second)
	added, err := m.ScanDirectory(context.Background(), "/movies", false)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, 1, first.CallCount("ScanDirectory:"))
	assert.Zero(t, second.CallCount("ScanDirectory:"))
}

func TestScanSkipsActiveHostsWhenConfigured(t *testing.T) {
	lib := testsupport.NewFakeLibrary()
	busy := testsupport.NewFakeHost("busy", lib)
	busy.Play(heat("/movies/x.mkv"), 10, false)
	idle := testsupport.NewFakeHost("idle", lib)

	m := newManager(t, nil, busy, idle)
	_, err := m.FullScan(context.Background(), true)
	require.NoError(t, err)
	assert.Zero(t, busy.CallCount("FullScan"))
	assert.Equal(t, 1, idle.CallCount("FullScan"))

	_, err = m.FullScan(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, busy.CallCount("FullScan"))
}

func TestBoundedRetryPolicyGivesUp(t *testing.T) {
	host := testsupport.NewFakeHost("down", nil)
	host.Unreachable = true
	m := library.NewManager([]library.Host{host}, nil,
		library.WithSleeper(instantSleep),
		library.WithRetryPolicy(library.RetryPolicy{Interval: time.Millisecond, MaxRounds: 4}),
	)

	err := m.CleanLibrary(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrRetriesExhausted))
	assert.Equal(t, 4, host.CallCount("CleanLibrary"))
}

func TestUnboundedRetryEndsOnlyWithContext(t *testing.T) {
	host := testsupport.NewFakeHost("down", nil)
	host.Unreachable = true
	ctx, cancel := context.WithCancel(context.Background())
	rounds := 0
	m := library.NewManager([]library.Host{host}, nil,
		library.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			rounds++
			if rounds == 25 {
				cancel()
			}
			return ctx.Err()
		}),
	)

	_, err := m.ScanDirectory(ctx, "/movies", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 25, host.CallCount("ScanDirectory:"))
}

func TestRetryWithoutHosts(t *testing.T) {
	m := library.NewManager(nil, nil)
	err := m.CleanLibrary(context.Background(), false)
	assert.True(t, errors.Is(err, library.ErrNoHosts))
}

func TestFullScanDiffsWholeCatalog(t *testing.T) {
	lib := testsupport.NewFakeLibrary(kodi.Movie{File: "/movies/a.mkv", TMDB: "1"})
	lib.AddOnScan(kodi.Movie{File: "/other/b.mkv", TMDB: "2"}, kodi.Movie{File: "/other/c.mkv"})
	m := newManager(t, nil, testsupport.NewFakeHost("only", lib))

	added, err := m.FullScan(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "2", added[0].StableID())
	assert.Equal(t, "/other/c.mkv", added[1].File)
}

func TestRemoveMovieFirstSuccessWins(t *testing.T) {
	lib := testsupport.NewFakeLibrary(heat("/movies/heat.mkv"))
	movie := lib.Movies()[0]
	refusing := testsupport.NewFakeHost("refusing", lib)
	refusing.FailRemove = true
	accepting := testsupport.NewFakeHost("accepting", lib)
	spare := testsupport.NewFakeHost("spare", lib)

	m := newManager(t, nil, refusing, accepting, spare)
	removed := m.RemoveMovies(context.Background(), []kodi.Movie{movie, {ID: 999, Title: "Ghost"}})

	require.Len(t, removed, 1)
	assert.Equal(t, movie.ID, removed[0].ID)
	assert.Zero(t, spare.CallCount("RemoveMovie:"+strconv.Itoa(movie.ID)))
	assert.Empty(t, lib.Movies())
}

func TestReconcileCopiesOnlyMatchingStableIDs(t *testing.T) {
	played := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	old := heat("/movies/old.mkv")
	old.ID = 1
	old.Watched = kodi.WatchedState{PlayCount: 3, LastPlayed: played, Resume: kodi.ResumeState{Position: 120, Total: 6000}}
	orphan := kodi.Movie{ID: 2, File: "/movies/orphan.mkv"}

	newHeat := heat("/movies/new.mkv")
	newHeat.ID = 10
	other := kodi.Movie{ID: 11, File: "/movies/alien.mkv", TMDB: "348"}
	noID := kodi.Movie{ID: 12, File: "/movies/orphan.mkv"}

	lib := testsupport.NewFakeLibrary(newHeat, other, noID)
	refusing := testsupport.NewFakeHost("refusing", lib)
	refusing.FailSetWatched = true
	accepting := testsupport.NewFakeHost("accepting", lib)

	m := newManager(t, nil, refusing, accepting)
	copied := m.Reconcile(context.Background(), []kodi.Movie{old, orphan}, []kodi.Movie{newHeat, other, noID})

	assert.Equal(t, 1, copied)
	require.Contains(t, accepting.WatchedSet, 10)
	assert.Equal(t, 3, accepting.WatchedSet[10].PlayCount)
	assert.True(t, accepting.WatchedSet[10].LastPlayed.Equal(played))
	assert.NotContains(t, accepting.WatchedSet, 11)
	assert.NotContains(t, accepting.WatchedSet, 12)
}

func TestStopPlaybackStoresAndRestartPauses(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	lib := testsupport.NewFakeLibrary(heat("/movies/heat.mkv"), kodi.Movie{File: "/movies/alien.mkv", Title: "Alien", TMDB: "348"})
	movies := lib.Movies()

	living := testsupport.NewFakeHost("living", lib)
	bedroom := testsupport.NewFakeHost("bedroom", lib)
	quiet := testsupport.NewFakeHost("quiet", lib)
	living.Play(movies[0], 42.5, true)
	bedroom.Play(movies[1], 12, false)
	bedroom.PlayEpisode(movies[0].ID)

	m := newManager(t, store, living, bedroom, quiet)
	records := m.StopPlayback(context.Background(), movies, "Rename in progress. Please wait...", true)

	require.Len(t, records, 2)
	assert.Len(t, living.Stopped, 1)
	assert.Len(t, bedroom.Stopped, 1, "episode players are left alone")
	require.Len(t, living.Notifications, 1)
	assert.True(t, living.Notifications[0].Force)
	assert.Equal(t, kodi.NotificationTitleStopped, living.Notifications[0].Title)
	assert.Empty(t, quiet.Notifications, "only originating hosts are told")

	readded := []kodi.Movie{
		{ID: 50, File: "/movies/Heat (1995).mkv", Title: "Heat", TMDB: "949"},
		{ID: 51, File: "/movies/Alien (1979).mkv", Title: "Alien", TMDB: "348"},
	}
	started := m.StartPlayback(context.Background(), readded)

	assert.Equal(t, 2, started)
	require.Len(t, living.Started, 1)
	assert.Equal(t, testsupport.StartRequest{MovieID: 50, Position: 42.5}, living.Started[0])
	assert.Len(t, living.Paused, 1)
	require.Len(t, bedroom.Started, 1)
	assert.Equal(t, 51, bedroom.Started[0].MovieID)
	assert.Empty(t, bedroom.Paused)

	assert.Empty(t, store.LoadAndClear(), "store consumed exactly once")
}

func TestStopPlaybackWithoutStoreLeavesPreviousGeneration(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	store.Save([]playback.Record{{Host: "living", Movie: heat("/x.mkv"), Position: 5}})

	lib := testsupport.NewFakeLibrary(heat("/movies/heat.mkv"))
	living := testsupport.NewFakeHost("living", lib)
	living.Play(lib.Movies()[0], 80, false)

	m := newManager(t, store, living)
	records := m.StopPlayback(context.Background(), lib.Movies(), "Movie deleted", false)
	require.Len(t, records, 1)

	kept := store.LoadAndClear()
	require.Len(t, kept, 1)
	assert.InDelta(t, 5, kept[0].Position, 0.001)
}

func TestStopPlaybackNothingPlayingSkipsStoreWrite(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	store.Save([]playback.Record{{Host: "living", Movie: heat("/x.mkv"), Position: 33}})

	living := testsupport.NewFakeHost("living", testsupport.NewFakeLibrary())
	m := newManager(t, store, living)

	assert.Empty(t, m.StopPlayback(context.Background(), []kodi.Movie{heat("/x.mkv")}, "Upgrade", true))
	assert.Len(t, store.LoadAndClear(), 1)
	assert.Empty(t, living.Notifications)
}

func TestStartPlaybackRequiresHostAndStableIDMatch(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	store.Save([]playback.Record{
		{Host: "living", Movie: heat("/old.mkv"), Position: 10},
		{Host: "elsewhere", Movie: heat("/old.mkv"), Position: 20},
		{Host: "living", Movie: kodi.Movie{File: "/noid.mkv"}, Position: 30},
	})
	living := testsupport.NewFakeHost("living", nil)
	m := newManager(t, store, living)

	started := m.StartPlayback(context.Background(), []kodi.Movie{
		{ID: 7, File: "/noid.mkv"},
		{ID: 8, File: "/new.mkv", TMDB: "949"},
	})

	assert.Equal(t, 1, started)
	require.Len(t, living.Started, 1)
	assert.Equal(t, 8, living.Started[0].MovieID)
	assert.Empty(t, store.LoadAndClear())
}

func TestStartPlaybackGivesEachRecordItsOwnEntry(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	store.Save([]playback.Record{
		{Host: "living", Movie: heat("/movies/Heat/Heat.cd1.mkv"), Position: 42.5, Paused: true},
		{Host: "bedroom", Movie: heat("/movies/Heat/Heat.cd2.mkv"), Position: 42.5, Paused: true},
	})
	living := testsupport.NewFakeHost("living", nil)
	bedroom := testsupport.NewFakeHost("bedroom", nil)
	m := newManager(t, store, living, bedroom)

	started := m.StartPlayback(context.Background(), []kodi.Movie{
		{ID: 20, File: "/movies/Heat/Heat - Part 1.mkv", TMDB: "949"},
		{ID: 21, File: "/movies/Heat/Heat - Part 2.mkv", TMDB: "949"},
	})

	assert.Equal(t, 2, started)
	assert.Equal(t, []testsupport.StartRequest{{MovieID: 20, Position: 42.5}}, living.Started)
	assert.Equal(t, []testsupport.StartRequest{{MovieID: 21, Position: 42.5}}, bedroom.Started)
	assert.Len(t, living.Paused, 1)
	assert.Len(t, bedroom.Paused, 1)
}

func TestDiscardStopped(t *testing.T) {
	store := testsupport.NewMemoryStore(t)
	store.Save([]playback.Record{{Host: "living", Movie: heat("/old.mkv")}})
	m := newManager(t, store)
	m.DiscardStopped(context.Background())
	assert.Empty(t, store.LoadAndClear())
}

func TestNotifyAndUpdateGUIs(t *testing.T) {
	lib := testsupport.NewFakeLibrary()
	scanner := testsupport.NewFakeHost("scanner", lib)
	viewer := testsupport.NewFakeHost("viewer", lib)
	muted := testsupport.NewFakeHost("muted", lib)
	muted.SuppressNotifications = true

	m := newManager(t, nil, scanner, viewer, muted)
	require.NoError(t, m.CleanLibrary(context.Background(), false))
	m.UpdateGUIs(context.Background())

	assert.Zero(t, scanner.GUIRefreshes)
	assert.Equal(t, 1, viewer.GUIRefreshes)
	assert.Equal(t, 1, muted.GUIRefreshes)

	m.Notify(context.Background(), "Radarr - Testing", "Test Passed")
	assert.Len(t, scanner.Notifications, 1)
	assert.Len(t, viewer.Notifications, 1)
	assert.Empty(t, muted.Notifications)

	m.ResetScanned()
	assert.False(t, scanner.Scanned())

	require.NoError(t, m.Close())
	assert.True(t, scanner.Closed)
}

func TestCatalogLookupsUseFirstNonEmptyHost(t *testing.T) {
	empty := testsupport.NewFakeHost("empty", testsupport.NewFakeLibrary())
	full := testsupport.NewFakeHost("full", testsupport.NewFakeLibrary(heat("/movies/Heat/heat.mkv")))
	m := newManager(t, nil, empty, full)
	ctx := context.Background()

	assert.Len(t, m.MoviesByFile(ctx, "/movies/Heat/heat.mkv"), 1)
	assert.Len(t, m.MoviesByDirectory(ctx, "/movies/Heat"), 1)
	assert.Len(t, m.AllMovies(ctx), 1)
	assert.Empty(t, m.MoviesByFile(ctx, "/nope.mkv"))
}
