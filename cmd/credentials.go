package cmd

import (
	"context"
	"fmt"
	"time"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"

	"github.com/spf13/cobra"
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Inspect the configured discordApi credential",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Check the bot token against the Discord API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := core.LoadConf(configPath)
			if err != nil {
				return err
			}
			token, _ := conf.Token()
			cred := credentials.Resolve(core.Credentials{credentials.TokenProperty: token})
			if !cred.Valid() {
				return fmt.Errorf("%w: set %s or discord-cred.token", credentials.ErrNoToken, core.EnvToken)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			user, err := credentials.Test(ctx, cred, conf.APIBase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s (%s).\n", user.Username, user.ID)
			return nil
		},
	})
	return cmd
}
