package events

import "testing"

func TestNFOPath(t *testing.T) {
	cases := map[string]string{
		"/movies/Heat (1995)/Heat (1995).mkv":     "/movies/Heat (1995)/Heat (1995).nfo",
		"/movies/Alien.1979.Remastered/alien.mp4": "/movies/Alien.1979.Remastered/alien.nfo",
		"/movies/noext": "/movies/noext.nfo",
	}
	for in, want := range cases {
		if got := nfoPath(in); got != want {
			t.Errorf("nfoPath(%q) = %q, want %q", in, got, want)
		}
	}
}
