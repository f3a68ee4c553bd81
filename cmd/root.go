// Package cmd command line entry of the trigger host.
package cmd

import (
	"os"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/nodes/discordwebhook"
	"discord-trigger/internal/services/discord"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

// NewRootCommand the discord-trigger command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "discord-trigger",
		Short:        "Wait for Discord messages and hand them to a workflow",
		Long:         "discord-trigger hosts the Discord Webhook trigger node: it logs a bot in, resolves the first message posted in a channel and disconnects.",
		Version:      core.VERSION,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return core.InitLogger(debug)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the yaml configuration (default: built-in defaults)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "development logging")

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(describeCmd())
	root.AddCommand(credentialsCmd())
	return root
}

// Execute run the root command, exit non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// host what every serving command builds: configuration, engine, gateway service and the trigger node.
type host struct {
	conf    *core.Conf
	engine  *core.Engine
	discord *discord.Service
}

func bootstrap() (*host, error) {
	conf, err := core.LoadConf(configPath)
	if err != nil {
		return nil, err
	}
	engine := core.NewEngine()
	engine.ExecutionTimeout = conf.Timeout
	if token, ok := conf.Token(); ok {
		engine.Credentials[credentials.Name] = core.Credentials{credentials.TokenProperty: token}
	} else {
		core.Logger.Warnf("No Discord token configured, set %s or discord-cred.token.", core.EnvToken)
	}

	discordService := &discord.Service{ServiceConfig: discord.ServiceConfig{ReconnectGrace: conf.ReconnectGrace}}
	if err := discordService.Init(engine.ServiceRegistry); err != nil {
		return nil, errors.Wrap(err, "error initializing discord service")
	}
	if err := engine.QuickRegisterNode(discordwebhook.NewNode); err != nil {
		return nil, err
	}
	return &host{conf: conf, engine: engine, discord: discordService}, nil
}

func (h *host) start() error {
	if err := h.engine.ServiceRegistry.StartAll(); err != nil {
		h.engine.ServiceRegistry.StopAll()
		return errors.Wrap(err, "error starting services")
	}
	return nil
}
