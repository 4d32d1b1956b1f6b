package radarr

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"

	"kodarr/internal/logging"
)

// Variable names exported by Radarr.
const (
	VarEventType             = "Radarr_EventType"
	VarMovieTitle            = "Radarr_Movie_Title"
	VarMovieYear             = "Radarr_Movie_Year"
	VarMovieTMDBID           = "Radarr_Movie_TmdbId"
	VarMovieIMDBID           = "Radarr_Movie_ImdbId"
	VarIsUpgrade             = "Radarr_IsUpgrade"
	VarMoviePath             = "Radarr_Movie_Path"
	VarMovieFilePath         = "Radarr_MovieFile_Path"
	VarDeletedPaths          = "Radarr_DeletedPaths"
	VarPreviousPaths         = "Radarr_MovieFile_PreviousPaths"
	VarMovieFilePaths        = "Radarr_MovieFilePaths"
	VarDeleteReason          = "Radarr_MovieFile_DeleteReason"
	VarMovieDeletedFiles     = "Radarr_Movie_DeletedFiles"
	VarHealthIssueMessage    = "Radarr_Health_Issue_Message"
	VarHealthRestoredMessage = "Radarr_Health_Restored_Message"
	VarUpdateMessage         = "Radarr_Update_Message"
)

const deleteReasonUpgrade = "upgrade"

// Event is one Radarr custom script invocation.
type Event struct {
	Kind    EventKind
	RawKind string

	MovieTitle string
	MovieYear  int
	TMDBID     int
	IMDBID     string
	IsUpgrade  bool

	// MovieDir is the movie's root folder; MovieFilePath the imported file.
	MovieDir      string
	MovieFilePath string

	DeletedPaths  []string
	PreviousPaths []string
	FilePaths     []string

	DeleteReason string
	DeletedFiles bool

	HealthIssueMessage    string
	HealthRestoredMessage string
	UpdateMessage         string
}

// MovieLabel renders "Title (Year)".
func (e Event) MovieLabel() string {
	if e.MovieYear == 0 {
		return e.MovieTitle
	}
	return fmt.Sprintf("%s (%d)", e.MovieTitle, e.MovieYear)
}

// IsUpgradeDelete reports whether a MovieFileDelete was caused by an upgrade.
func (e Event) IsUpgradeDelete() bool {
	return cases.Fold().String(trimSpace(e.DeleteReason)) == deleteReasonUpgrade
}

// FromEnviron parses KEY=VALUE pairs as returned by os.Environ.
func FromEnviron(environ []string, logger *slog.Logger) Event {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return FromMap(values, logger)
}

// FromMap parses an event from a variable map. Values that fail to coerce keep
// their zero value and are logged.
func FromMap(values map[string]string, logger *slog.Logger) Event {
	if logger == nil {
		logger = logging.NewNop()
	}
	fold := cases.Fold()
	vars := make(map[string]string, len(values))
	for key, value := range values {
		folded := fold.String(trimSpace(key))
		if !strings.HasPrefix(folded, "radarr") {
			continue
		}
		vars[folded] = value
	}
	p := parser{vars: vars, fold: fold, logger: logger}

	raw := p.str(VarEventType)
	return Event{
		Kind:                  ParseEventKind(raw),
		RawKind:               raw,
		MovieTitle:            p.str(VarMovieTitle),
		MovieYear:             p.int(VarMovieYear),
		TMDBID:                p.int(VarMovieTMDBID),
		IMDBID:                p.str(VarMovieIMDBID),
		IsUpgrade:             p.bool(VarIsUpgrade),
		MovieDir:              p.str(VarMoviePath),
		MovieFilePath:         p.str(VarMovieFilePath),
		DeletedPaths:          p.list(VarDeletedPaths),
		PreviousPaths:         p.list(VarPreviousPaths),
		FilePaths:             p.list(VarMovieFilePaths),
		DeleteReason:          p.str(VarDeleteReason),
		DeletedFiles:          p.bool(VarMovieDeletedFiles),
		HealthIssueMessage:    p.str(VarHealthIssueMessage),
		HealthRestoredMessage: p.str(VarHealthRestoredMessage),
		UpdateMessage:         p.str(VarUpdateMessage),
	}
}

type parser struct {
	vars   map[string]string
	fold   cases.Caser
	logger *slog.Logger
}

func (p parser) lookup(name string) (string, bool) {
	value, ok := p.vars[p.fold.String(name)]
	if !ok {
		return "", false
	}
	value = trimSpace(value)
	return value, value != ""
}

func (p parser) str(name string) string {
	value, _ := p.lookup(name)
	return value
}

func (p parser) int(name string) int {
	value, ok := p.lookup(name)
	if !ok {
		return 0
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		p.logger.Warn("ignoring malformed integer", slog.String("variable", name), slog.String("value", value), slog.Any("error", err))
		return 0
	}
	return n
}

func (p parser) bool(name string) bool {
	value, ok := p.lookup(name)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(strings.ToLower(value))
	if err != nil {
		p.logger.Warn("ignoring malformed boolean", slog.String("variable", name), slog.String("value", value), slog.Any("error", err))
		return false
	}
	return b
}

func (p parser) list(name string) []string {
	value, ok := p.lookup(name)
	if !ok {
		return nil
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = trimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func trimSpace(value string) string {
	return strings.TrimSpace(value)
}
