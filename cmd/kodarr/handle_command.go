package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"kodarr/internal/events"
	"kodarr/internal/library"
	"kodarr/internal/logging"
	"kodarr/internal/playback"
	"kodarr/internal/preflight"
	"kodarr/internal/radarr"
	"kodarr/internal/services"
)

const lockRetryDelay = 500 * time.Millisecond

func newHandleCommand(ctx *commandContext) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Process the Radarr event described by the environment",
		Long: "Process one Radarr custom script event. Radarr passes the event in " +
			"Radarr_* environment variables; --env-file replays a captured event instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if len(cfg.EnabledHosts()) == 0 {
				return services.Wrap(services.ErrConfiguration, "handle", "hosts", "no enabled kodi hosts; add a [[hosts]] entry", nil)
			}
			if check := preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir); !check.Passed {
				return services.Wrap(services.ErrConfiguration, "handle", "state_dir", check.Detail, nil)
			}

			var event radarr.Event
			if path := strings.TrimSpace(envFile); path != "" {
				values, err := radarr.LoadEnvFile(path)
				if err != nil {
					return err
				}
				event = radarr.FromMap(values, logger)
			} else {
				event = radarr.FromEnviron(os.Environ(), logger)
			}

			runCtx := cmd.Context()
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLockContext(runCtx, lockRetryDelay)
			if err != nil {
				return fmt.Errorf("acquire event lock %s: %w", cfg.LockPath(), err)
			}
			if !locked {
				return fmt.Errorf("acquire event lock %s: lock held", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release event lock", logging.Error(err))
				}
			}()

			hosts := library.ConnectHosts(runCtx, cfg, logger)
			if len(hosts) == 0 {
				logging.WarnWithContext(logger, "no kodi hosts reachable, event dropped", "no_hosts",
					logging.String("event", event.Kind.String()),
					logging.String(logging.FieldErrorHint, "run kodarr status to check host connectivity"),
					logging.String(logging.FieldImpact, "kodi libraries are not updated for this event"),
				)
				return nil
			}

			store := playback.NewFileStore(nil, cfg.StorePath(), logger)
			manager := library.NewManager(hosts, store, library.WithLogger(logger))
			defer func() {
				if err := manager.Close(); err != nil {
					logger.Debug("closing host sessions", logging.Error(err))
				}
			}()

			handler := events.NewHandler(cfg, manager, events.WithLogger(logger))
			if err := handler.Dispatch(runCtx, event); err != nil && runCtx.Err() != nil {
				return runCtx.Err()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Handled %s event\n", event.Kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Read Radarr_* variables from a dotenv file instead of the environment")
	return cmd
}
