package preflight

import (
	"context"

	"kodarr/internal/config"
	"kodarr/internal/services/kodi"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config: state and log
// directories, then each configured host in priority order.
func RunAll(ctx context.Context, cfg *config.Config, opts ...kodi.Option) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range ProbeHosts(ctx, cfg, opts...) {
		results = append(results, status.Result())
	}

	return results
}
