package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-trigger/internal/nodes/discordwebhook"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		channelID string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Wait for one message in a channel and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bootstrap()
			if err != nil {
				return err
			}
			if err := h.start(); err != nil {
				return err
			}
			defer h.engine.GracefulShutDown()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			params := map[string]any{"channelId": channelID}
			if timeout > 0 {
				params["timeout"] = timeout.Seconds()
			}
			result, err := h.engine.Execute(ctx, discordwebhook.NodeName, params)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&channelID, "channel-id", "", "ID of the channel to receive a message from")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long, 0 waits until interrupted")
	return cmd
}
