package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kodarr/internal/library"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var title string
	var message string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification to every Kodi host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return errors.New("--message is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			hosts := library.ConnectHosts(cmd.Context(), cfg, logger)
			if len(hosts) == 0 {
				return errors.New("no kodi hosts reachable")
			}
			manager := library.NewManager(hosts, nil, library.WithLogger(logger))
			defer manager.Close()

			manager.Notify(cmd.Context(), title, message)
			fmt.Fprintf(cmd.OutOrStdout(), "Notification sent to %d host(s)\n", len(hosts))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "Radarr", "Notification title")
	cmd.Flags().StringVar(&message, "message", "", "Notification message")
	return cmd
}
