package radarr

import "golang.org/x/text/cases"

// EventKind enumerates the Radarr custom script event types.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindGrab
	KindDownload
	KindRename
	KindMovieAdded
	KindMovieDelete
	KindMovieFileDelete
	KindHealthIssue
	KindHealthRestored
	KindApplicationUpdate
	KindManualInteractionRequired
	KindTest
)

var kindNames = map[EventKind]string{
	KindUnknown:                   "Unknown",
	KindGrab:                      "Grab",
	KindDownload:                  "Download",
	KindRename:                    "Rename",
	KindMovieAdded:                "MovieAdded",
	KindMovieDelete:               "MovieDelete",
	KindMovieFileDelete:           "MovieFileDelete",
	KindHealthIssue:               "HealthIssue",
	KindHealthRestored:            "HealthRestored",
	KindApplicationUpdate:         "ApplicationUpdate",
	KindManualInteractionRequired: "ManualInteractionRequired",
	KindTest:                      "Test",
}

var foldedKinds = func() map[string]EventKind {
	fold := cases.Fold()
	out := make(map[string]EventKind, len(kindNames))
	for kind, name := range kindNames {
		out[fold.String(name)] = kind
	}
	return out
}()

// String returns the Radarr spelling of the kind.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseEventKind maps a Radarr_EventType value to its kind. Matching ignores
// case and surrounding whitespace; anything unrecognised is KindUnknown.
func ParseEventKind(value string) EventKind {
	key := cases.Fold().String(trimSpace(value))
	if kind, ok := foldedKinds[key]; ok {
		return kind
	}
	return KindUnknown
}
