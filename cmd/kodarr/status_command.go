package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kodarr/internal/config"
	"kodarr/internal/playback"
	"kodarr/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, directory, and Kodi host health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Configuration")
			report.line("Config file", statusInfo, ctx.configPath)
			report.line("Path maps", statusInfo, strconv.Itoa(len(cfg.PathMaps)))
			report.line("Wait for NFO", statusInfo, yesNo(cfg.Library.WaitForNFO))
			report.line("Skip active hosts", statusInfo, yesNo(cfg.Library.SkipActive))
			report.line("Clean after update", statusInfo, yesNo(cfg.Library.CleanAfterUpdate))
			report.line("Full scan fallback", statusInfo, yesNo(cfg.Library.FullScanFallback))

			report.section("Directories")
			report.check(preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
			report.check(preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
			report.line("Stopped playback", statusInfo, pendingPlayback(cfg))

			report.section("Kodi Hosts")
			if statuses := preflight.ProbeHosts(cmd.Context(), cfg); len(statuses) == 0 {
				report.line("Hosts", statusWarn, "none configured")
			} else {
				report.block(renderHostTable(statuses, report.colorize))
			}
			fmt.Fprint(out, report.String())
			return nil
		},
	}
}

// pendingPlayback describes unconsumed preservation records without consuming them.
func pendingPlayback(cfg *config.Config) string {
	records, err := playback.NewFileStore(nil, cfg.StorePath(), nil).Peek()
	if err != nil {
		return fmt.Sprintf("unreadable (%v)", err)
	}
	if len(records) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%s on %s at %.1f%%", r.Movie.String(), r.Host, r.Position))
	}
	return strings.Join(parts, ", ")
}
