package cmd

import (
	"encoding/json"
	"fmt"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/nodes/discordwebhook"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type catalog struct {
	Nodes       []core.NodeDescription       `json:"nodes" yaml:"nodes"`
	Credentials []core.CredentialDescription `json:"credentials" yaml:"credentials"`
}

func describeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the node and credential descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := catalog{
				Nodes:       []core.NodeDescription{(&discordwebhook.Node{}).Description()},
				Credentials: []core.CredentialDescription{credentials.DiscordAPI},
			}
			out := cmd.OutOrStdout()
			switch output {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(c)
			default:
				return fmt.Errorf("unknown output format %q, want json or yaml", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "json or yaml")
	return cmd
}
