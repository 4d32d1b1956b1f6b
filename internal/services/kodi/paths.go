package kodi

import (
	"path"
	"strings"
)

// PathMapping translates a path prefix reported by Radarr to the prefix a
// Kodi host uses.
type PathMapping struct {
	Source string
	Target string
}

// MapPath applies the first mapping whose source prefixes value. Mappings are
// applied at most once.
func MapPath(value string, mappings []PathMapping) string {
	for _, m := range mappings {
		if m.Source == "" {
			continue
		}
		if strings.HasPrefix(value, m.Source) {
			return m.Target + strings.TrimPrefix(value, m.Source)
		}
	}
	return value
}

// pathStyle renders paths for one host's separator convention.
type pathStyle struct {
	windows bool
}

func (s pathStyle) separator() string {
	if s.windows {
		return `\`
	}
	return "/"
}

// Render normalizes value to the host convention. URL style paths
// (smb://, nfs://) always keep forward slashes.
func (s pathStyle) Render(value string) string {
	if value == "" {
		return value
	}
	if scheme, rest, ok := strings.Cut(value, "://"); ok && !strings.ContainsAny(scheme, `/\`) {
		rest = strings.ReplaceAll(rest, `\`, "/")
		cleaned := path.Clean("/" + rest)
		return scheme + ":/" + cleaned
	}
	if !s.windows {
		return path.Clean(strings.ReplaceAll(value, `\`, "/"))
	}
	slashed := strings.ReplaceAll(value, `\`, "/")
	prefix := ""
	if strings.HasPrefix(slashed, "//") {
		prefix = `\\`
		slashed = strings.TrimLeft(slashed, "/")
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." {
		cleaned = ""
	}
	return prefix + strings.ReplaceAll(cleaned, "/", `\`)
}

// Dir returns the parent directory of a rendered path.
func (s pathStyle) Dir(value string) string {
	sep := s.separator()
	if isURL(value) {
		sep = "/"
	}
	idx := strings.LastIndex(value, sep)
	if idx < 0 {
		return ""
	}
	if idx == 0 {
		return sep
	}
	return value[:idx]
}

// Base returns the final element of a rendered path.
func (s pathStyle) Base(value string) string {
	sep := s.separator()
	if isURL(value) {
		sep = "/"
	}
	idx := strings.LastIndex(value, sep)
	if idx < 0 {
		return value
	}
	return value[idx+1:]
}

// WithTrailingSeparator ensures exactly one trailing separator.
func (s pathStyle) WithTrailingSeparator(value string) string {
	sep := s.separator()
	if isURL(value) {
		sep = "/"
	}
	return strings.TrimRight(value, `/\`) + sep
}

func isURL(value string) bool {
	scheme, _, ok := strings.Cut(value, "://")
	return ok && !strings.ContainsAny(scheme, `/\`)
}
