package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"kodarr/internal/services/kodi"
)

// FakeLibrary is a movie catalog shared by one or more FakeHosts, the way
// Kodi hosts sharing a MySQL database see one library.
type FakeLibrary struct {
	mu      sync.Mutex
	movies  []kodi.Movie
	pending []kodi.Movie
	missing map[string]bool
	nextID  int
}

// NewFakeLibrary returns a library seeded with movies. IDs of zero are assigned.
func NewFakeLibrary(movies ...kodi.Movie) *FakeLibrary {
	lib := &FakeLibrary{missing: map[string]bool{}, nextID: 100}
	for _, m := range movies {
		lib.movies = append(lib.movies, lib.assign(m))
	}
	return lib
}

func (l *FakeLibrary) assign(m kodi.Movie) kodi.Movie {
	if m.ID == 0 {
		l.nextID++
		m.ID = l.nextID
	}
	return m
}

// AddOnScan queues movies that appear once a scan covering their file runs.
func (l *FakeLibrary) AddOnScan(movies ...kodi.Movie) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, movies...)
}

// MarkMissing makes a clean drop entries backed by file.
func (l *FakeLibrary) MarkMissing(file string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.missing[file] = true
}

// Movies returns a snapshot of the catalog.
func (l *FakeLibrary) Movies() []kodi.Movie {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]kodi.Movie(nil), l.movies...)
}

// Movie looks up an entry by id.
func (l *FakeLibrary) Movie(id int) (kodi.Movie, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.movies {
		if m.ID == id {
			return m, true
		}
	}
	return kodi.Movie{}, false
}

func (l *FakeLibrary) scan(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := l.pending[:0]
	for _, m := range l.pending {
		if prefix == "" || inDirectory(m.File, prefix) {
			l.movies = append(l.movies, l.assign(m))
			continue
		}
		remaining = append(remaining, m)
	}
	l.pending = remaining
}

// inDirectory matches the way Kodi compares folder paths, which always end
// in a separator.
func inDirectory(file, directory string) bool {
	return strings.HasPrefix(file, strings.TrimRight(directory, "/")+"/")
}

func (l *FakeLibrary) clean() {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.movies[:0]
	for _, m := range l.movies {
		if !l.missing[m.File] {
			kept = append(kept, m)
		}
	}
	l.movies = kept
}

func (l *FakeLibrary) filter(keep func(kodi.Movie) bool) []kodi.Movie {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []kodi.Movie
	for _, m := range l.movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (l *FakeLibrary) remove(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.movies {
		if m.ID == id {
			l.movies = append(l.movies[:i], l.movies[i+1:]...)
			return true
		}
	}
	return false
}

func (l *FakeLibrary) setWatched(id int, state kodi.WatchedState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.movies {
		if l.movies[i].ID == id {
			l.movies[i].Watched = state
			return true
		}
	}
	return false
}

// Notification is one GUI notification received by a FakeHost.
type Notification struct {
	Title   string
	Message string
	Force   bool
}

// StartRequest is one StartMovie call received by a FakeHost.
type StartRequest struct {
	MovieID  int
	Position float64
}

type fakePlayback struct {
	item    kodi.PlayerItem
	percent float64
	paused  bool
}

// FakeHost is an in-memory Kodi host for coordinator and workflow tests.
type FakeHost struct {
	mu      sync.Mutex
	name    string
	library *FakeLibrary
	players map[int]*fakePlayback
	nextPID int
	scanned bool

	// Unreachable makes every operation fail.
	Unreachable bool
	// ScanFailures fails that many scan and clean attempts before succeeding.
	ScanFailures int
	// FailRemove rejects removals.
	FailRemove bool
	// FailSetWatched rejects watched state updates.
	FailSetWatched bool
	// SuppressNotifications mirrors hosts.disable_notifications.
	SuppressNotifications bool

	Calls         []string
	Notifications []Notification
	Started       []StartRequest
	Stopped       []int
	Paused        []int
	WatchedSet    map[int]kodi.WatchedState
	GUIRefreshes  int
	Closed        bool
}

// NewFakeHost returns a host backed by library.
func NewFakeHost(name string, library *FakeLibrary) *FakeHost {
	if library == nil {
		library = NewFakeLibrary()
	}
	return &FakeHost{
		name:       name,
		library:    library,
		players:    map[int]*fakePlayback{},
		WatchedSet: map[int]kodi.WatchedState{},
	}
}

// Library returns the backing library.
func (h *FakeHost) Library() *FakeLibrary { return h.library }

// Play starts a fake movie player and returns its id.
func (h *FakeHost) Play(movie kodi.Movie, percent float64, paused bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextPID++
	h.players[h.nextPID] = &fakePlayback{
		item:    kodi.PlayerItem{ID: movie.ID, Label: movie.Title, Type: "movie", File: movie.File},
		percent: percent,
		paused:  paused,
	}
	return h.nextPID
}

// PlayEpisode starts a non-movie player.
func (h *FakeHost) PlayEpisode(id int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextPID++
	h.players[h.nextPID] = &fakePlayback{item: kodi.PlayerItem{ID: id, Type: "episode"}}
	return h.nextPID
}

func (h *FakeHost) record(format string, args ...any) {
	h.Calls = append(h.Calls, fmt.Sprintf(format, args...))
}

// CallCount counts recorded calls with the given prefix.
func (h *FakeHost) CallCount(prefix string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (h *FakeHost) Name() string { return h.name }

func (h *FakeHost) Scanned() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scanned
}

func (h *FakeHost) ResetScanned() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scanned = false
}

func (h *FakeHost) ActivePlayers(context.Context) []kodi.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Unreachable {
		return nil
	}
	ids := make([]int, 0, len(h.players))
	for id := range h.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	players := make([]kodi.Player, 0, len(ids))
	for _, id := range ids {
		players = append(players, kodi.Player{ID: id, PlayerType: "internal", Type: "video"})
	}
	return players
}

func (h *FakeHost) IsPlaying(ctx context.Context) bool {
	return len(h.ActivePlayers(ctx)) > 0
}

func (h *FakeHost) PlayerItem(_ context.Context, playerID int) *kodi.PlayerItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if h.Unreachable || !ok {
		return nil
	}
	item := p.item
	return &item
}

func (h *FakeHost) PlayerPercent(_ context.Context, playerID int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[playerID]; ok && !h.Unreachable {
		return p.percent
	}
	return 0
}

func (h *FakeHost) IsPaused(_ context.Context, playerID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[playerID]; ok && !h.Unreachable {
		return p.paused
	}
	return false
}

func (h *FakeHost) StopPlayer(_ context.Context, playerID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("StopPlayer:%d", playerID)
	if h.Unreachable {
		return false
	}
	if _, ok := h.players[playerID]; !ok {
		return false
	}
	delete(h.players, playerID)
	h.Stopped = append(h.Stopped, playerID)
	return true
}

func (h *FakeHost) PausePlayer(_ context.Context, playerID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("PausePlayer:%d", playerID)
	if p, ok := h.players[playerID]; ok && !h.Unreachable {
		p.paused = true
		h.Paused = append(h.Paused, playerID)
		return true
	}
	return false
}

func (h *FakeHost) StartMovie(_ context.Context, movieID int, position float64) *kodi.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("StartMovie:%d", movieID)
	if h.Unreachable {
		return nil
	}
	h.Started = append(h.Started, StartRequest{MovieID: movieID, Position: position})
	h.nextPID++
	h.players[h.nextPID] = &fakePlayback{
		item:    kodi.PlayerItem{ID: movieID, Type: "movie"},
		percent: position,
	}
	return &kodi.Player{ID: h.nextPID, PlayerType: "internal", Type: "video"}
}

func (h *FakeHost) libraryJob(call string, run func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("%s", call)
	if h.Unreachable {
		return false
	}
	if h.ScanFailures > 0 {
		h.ScanFailures--
		return false
	}
	run()
	h.scanned = true
	return true
}

func (h *FakeHost) ScanDirectory(_ context.Context, directory string) bool {
	return h.libraryJob("ScanDirectory:"+directory, func() { h.library.scan(directory) })
}

func (h *FakeHost) FullScan(context.Context) bool {
	return h.libraryJob("FullScan", func() { h.library.scan("") })
}

func (h *FakeHost) CleanLibrary(context.Context) bool {
	return h.libraryJob("CleanLibrary", h.library.clean)
}

func (h *FakeHost) UpdateGUI(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("UpdateGUI")
	if !h.Unreachable {
		h.GUIRefreshes++
	}
}

func (h *FakeHost) AllMovies(context.Context) []kodi.Movie {
	if h.isUnreachable() {
		return nil
	}
	return h.library.filter(func(kodi.Movie) bool { return true })
}

func (h *FakeHost) MoviesByDirectory(_ context.Context, directory string) []kodi.Movie {
	if h.isUnreachable() {
		return nil
	}
	return h.library.filter(func(m kodi.Movie) bool { return inDirectory(m.File, directory) })
}

func (h *FakeHost) MoviesByFile(_ context.Context, file string) []kodi.Movie {
	if h.isUnreachable() {
		return nil
	}
	return h.library.filter(func(m kodi.Movie) bool { return m.File == file })
}

func (h *FakeHost) RemoveMovie(_ context.Context, movieID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("RemoveMovie:%d", movieID)
	if h.Unreachable || h.FailRemove {
		return false
	}
	if !h.library.remove(movieID) {
		return false
	}
	h.scanned = true
	return true
}

func (h *FakeHost) SetWatchedState(_ context.Context, movieID int, state kodi.WatchedState) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("SetWatchedState:%d", movieID)
	if h.Unreachable || h.FailSetWatched {
		return false
	}
	h.WatchedSet[movieID] = state
	return h.library.setWatched(movieID, state)
}

func (h *FakeHost) Notify(_ context.Context, title, message string, force bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Unreachable || (h.SuppressNotifications && !force) {
		return
	}
	h.Notifications = append(h.Notifications, Notification{Title: title, Message: message, Force: force})
}

func (h *FakeHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Closed = true
	return nil
}

func (h *FakeHost) isUnreachable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Unreachable
}
