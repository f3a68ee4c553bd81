package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/services/web"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the trigger node over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bootstrap()
			if err != nil {
				return err
			}
			if addr != "" {
				h.conf.Addr = addr
			}
			webService := &web.Service{ServiceConfig: web.ServiceConfig{
				Addr:            h.conf.Addr,
				TrustedProxies:  h.conf.TrustedProxies,
				Executor:        h.engine,
				CredentialTypes: []core.CredentialDescription{credentials.DiscordAPI},
			}}
			if err := webService.Init(h.engine.ServiceRegistry); err != nil {
				return errors.Wrap(err, "error initializing web service")
			}
			if err := h.start(); err != nil {
				return err
			}
			core.Logger.Infof("Serving on %s.", webService.ListenAddr())

			//graceful shutdown
			sc := make(chan os.Signal, 1)
			signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			<-sc

			h.engine.GracefulShutDown()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides web.addr")
	return cmd
}
