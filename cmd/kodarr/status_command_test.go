package main

import (
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"kodarr/internal/playback"
	"kodarr/internal/preflight"
	"kodarr/internal/services/kodi"
)

func TestStatusRendersHostTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Kodi Hosts ==")
	requireContains(t, out, "living")
	requireContains(t, out, "13.5.0")
	requireContains(t, out, "Linux")
	requireContains(t, out, "State directory:")
	requireContains(t, out, "Stopped playback:")
	requireContains(t, out, "[INFO] none")
}

func TestStatusShowsPendingPlaybackWithoutConsumingIt(t *testing.T) {
	env := setupCLITestEnv(t)
	store := playback.NewFileStore(nil, env.cfg.StorePath(), nil)
	store.Save([]playback.Record{{Host: "living", Movie: kodi.Movie{Title: "Heat", Year: 1995, TMDB: "949"}, Position: 42.5}})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Heat (1995) on living at 42.5%")

	if records := store.LoadAndClear(); len(records) != 1 {
		t.Fatalf("status consumed the store: %d records left", len(records))
	}
}

func TestFormatStatusLineColorizes(t *testing.T) {
	plain := formatStatusLine("Hosts", statusError, "down", false)
	requireContains(t, plain, "[ERROR] down")
	colored := formatStatusLine("Hosts", statusError, "down", true)
	if colored != text.FgRed.Sprint(plain) {
		t.Fatalf("colored line = %q, want red %q", colored, plain)
	}
}

func TestRenderHostTableStates(t *testing.T) {
	out := renderHostTable([]preflight.HostStatus{
		{Name: "living", Priority: 1, Enabled: true, Reachable: true, Version: "13.5.0"},
		{Name: "bedroom", Priority: 5, Enabled: true, QuietNotifications: true},
		{Name: "garage", Priority: 9},
	}, false)
	requireContains(t, out, "OK")
	requireContains(t, out, "Unreachable")
	requireContains(t, out, "Disabled")
	requireContains(t, out, "forced only")
	if strings.Index(out, "living") > strings.Index(out, "bedroom") {
		t.Fatalf("hosts out of priority order:\n%s", out)
	}
}
