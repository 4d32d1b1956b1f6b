package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kodarr/internal/config"
	"kodarr/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	kodi       *testsupport.FakeKodi
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("KODARR_STATE_DIR", "")
	t.Setenv("KODARR_LOG_LEVEL", "")

	fake := testsupport.NewFakeKodi(t)
	addr, port := fake.Address()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{
		testsupport.WithHost("living", addr, port, 0),
	}, opts...)...)

	configPath := filepath.Join(homeDir, ".config", "kodarr", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		kodi:       fake,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nstate_dir = %q\nlog_dir = %q\n\n", cfg.Paths.StateDir, cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[logging]\nformat = \"json\"\nlevel = \"error\"\n\n")
	for _, host := range cfg.Hosts {
		fmt.Fprintf(&b, "[[hosts]]\nname = %q\naddress = %q\nport = %d\nws_port = %d\npriority = %d\ntransport = %q\ntimeout_seconds = %d\n\n",
			host.Name, host.Address, host.Port, host.WSPort, host.Priority, host.Transport, host.TimeoutSeconds)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
