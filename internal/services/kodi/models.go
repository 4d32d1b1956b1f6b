package kodi

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateTimeLayout is the timestamp format used by the Kodi video library.
const DateTimeLayout = "2006-01-02 15:04:05"

// MovieProperties are requested for every catalog query.
var MovieProperties = []string{
	"lastplayed",
	"playcount",
	"file",
	"dateadded",
	"title",
	"year",
	"resume",
	"uniqueid",
}

// Platform is a Kodi System.Platform info boolean.
type Platform string

// Platforms a host can report. Only Windows hosts use backslash paths.
// PlatformUnknown stands in when no info boolean is set or the query fails.
const (
	PlatformAndroid Platform = "System.Platform.Android"
	PlatformDarwin  Platform = "System.Platform.Darwin"
	PlatformIOS     Platform = "System.Platform.IOS"
	PlatformLinux   Platform = "System.Platform.Linux"
	PlatformOSX     Platform = "System.Platform.OSX"
	PlatformTVOS    Platform = "System.Platform.TVOS"
	PlatformUWP     Platform = "System.Platform.UWP"
	PlatformWindows Platform = "System.Platform.Windows"
	PlatformUnknown Platform = "Unknown"
)

// KnownPlatforms lists the info booleans probed to detect the platform.
var KnownPlatforms = []Platform{
	PlatformAndroid,
	PlatformDarwin,
	PlatformIOS,
	PlatformLinux,
	PlatformOSX,
	PlatformTVOS,
	PlatformUWP,
	PlatformWindows,
}

// UsesWindowsPaths reports whether paths on this platform use backslashes.
func (p Platform) UsesWindowsPaths() bool {
	return p == PlatformWindows
}

// Short returns the platform name without the info boolean prefix.
func (p Platform) Short() string {
	return strings.TrimPrefix(string(p), "System.Platform.")
}

// RPCVersion is the host's JSON-RPC API version.
type RPCVersion struct {
	Major int
	Minor int
	Patch int
}

func (v RPCVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Player is an active Kodi player.
type Player struct {
	ID         int
	PlayerType string
	Type       string
}

// PlayerItem is what a player is currently playing.
type PlayerItem struct {
	ID    int
	Label string
	Type  string
	File  string
}

// IsMovie reports whether the item is a library movie.
func (i PlayerItem) IsMovie() bool {
	return strings.EqualFold(i.Type, "movie")
}

// ResumeState is a resume point in seconds.
type ResumeState struct {
	Position float64 `json:"position"`
	Total    float64 `json:"total"`
}

// Percent returns the resume point as a percentage of the runtime.
func (r ResumeState) Percent() float64 {
	if r.Total == 0 || r.Position == 0 {
		return 0
	}
	return r.Position / r.Total * 100
}

// WatchedState is the mutable per-entry history carried across a remove and
// re-add cycle.
type WatchedState struct {
	PlayCount  int         `json:"play_count"`
	LastPlayed time.Time   `json:"last_played"`
	DateAdded  time.Time   `json:"date_added"`
	Resume     ResumeState `json:"resume"`
}

func (w WatchedState) String() string {
	return fmt.Sprintf("added=%s plays=%d last_played=%s resume=%.2f%%",
		formatTime(w.DateAdded), w.PlayCount, formatTime(w.LastPlayed), w.Resume.Percent())
}

// Movie is a Kodi video library movie entry.
type Movie struct {
	ID      int          `json:"id"`
	File    string       `json:"file"`
	Title   string       `json:"title"`
	Year    int          `json:"year"`
	IMDB    string       `json:"imdb,omitempty"`
	TMDB    string       `json:"tmdb,omitempty"`
	Watched WatchedState `json:"watched"`
}

// StableID identifies the movie across a remove and re-add cycle. The TMDB id
// is preferred; the IMDB id is the fallback. Empty when neither is known.
func (m Movie) StableID() string {
	if tmdb := strings.TrimSpace(m.TMDB); tmdb != "" {
		return tmdb
	}
	if imdb := strings.TrimSpace(m.IMDB); imdb != "" {
		return "imdb:" + imdb
	}
	return ""
}

// SameMovie reports whether two entries share a non-empty stable identifier.
func (m Movie) SameMovie(other Movie) bool {
	id := m.StableID()
	return id != "" && id == other.StableID()
}

// SameEntry reports whether two snapshots of one host's catalog describe the
// same entry. Library ids decide when both sides carry one, then stable identifiers, then
// the file path. A replacement file scanned next to an entry that could not be
// removed shares its stable identifier but never its library id.
func (m Movie) SameEntry(other Movie) bool {
	if m.ID != 0 && other.ID != 0 {
		return m.ID == other.ID
	}
	a, b := m.StableID(), other.StableID()
	if a != "" && b != "" {
		return a == b
	}
	return m.File != "" && m.File == other.File
}

// SameStableEntry matches entries taken from different hosts' catalogs, where
// library ids are unrelated. Entries match by stable identifier, or by file
// path when neither carries one.
func (m Movie) SameStableEntry(other Movie) bool {
	a, b := m.StableID(), other.StableID()
	if a != "" || b != "" {
		return a == b
	}
	return m.File != "" && m.File == other.File
}

func (m Movie) String() string {
	if m.Year == 0 {
		return m.Title
	}
	return fmt.Sprintf("%s (%d)", m.Title, m.Year)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateTimeLayout)
}

func parseTime(value any) time.Time {
	text := strings.TrimSpace(cast.ToString(value))
	if text == "" {
		return time.Time{}
	}
	parsed, err := time.ParseInLocation(DateTimeLayout, text, time.Local)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseMovie(raw map[string]any) (Movie, bool) {
	rawID, ok := raw["movieid"]
	if !ok {
		return Movie{}, false
	}
	id, err := cast.ToIntE(rawID)
	if err != nil {
		return Movie{}, false
	}
	uniqueIDs := cast.ToStringMapString(raw["uniqueid"])
	resume := cast.ToStringMap(raw["resume"])
	return Movie{
		ID:    id,
		File:  cast.ToString(raw["file"]),
		Title: cast.ToString(raw["title"]),
		Year:  cast.ToInt(raw["year"]),
		IMDB:  uniqueIDs["imdb"],
		TMDB:  uniqueIDs["tmdb"],
		Watched: WatchedState{
			PlayCount:  cast.ToInt(raw["playcount"]),
			LastPlayed: parseTime(raw["lastplayed"]),
			DateAdded:  parseTime(raw["dateadded"]),
			Resume: ResumeState{
				Position: cast.ToFloat64(resume["position"]),
				Total:    cast.ToFloat64(resume["total"]),
			},
		},
	}, true
}
