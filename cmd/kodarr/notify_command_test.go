package main

import "testing"

func TestNotifyCommandSendsToHosts(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "--title", "Maintenance", "--message", "NAS rebooting"}, env.configPath)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	requireContains(t, out, "Notification sent to 1 host(s)")

	calls := env.kodi.Calls("GUI.ShowNotification")
	if len(calls) != 1 || calls[0].Params["title"] != "Maintenance" || calls[0].Params["message"] != "NAS rebooting" {
		t.Fatalf("unexpected notifications %+v", calls)
	}
}

func TestNotifyRequiresMessage(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"notify"}, env.configPath); err == nil {
		t.Fatal("expected error without --message")
	}
}
