// Package discordwebhook The Discord Webhook trigger node: wait for one message in a channel.
package discordwebhook

import (
	"fmt"
	"math"
	"time"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/services/discord"
)

// NodeName name the engine registers the node under.
const NodeName = "discordWebhook"

const (
	ResourceMessage  = "message"
	OperationReceive = "receive"
)

var description = core.NodeDescription{
	DisplayName: "Discord Webhook",
	Name:        NodeName,
	Icon:        "file:discord.svg",
	Group:       []string{"trigger"},
	Version:     1,
	Subtitle:    `={{$parameter["operation"] + ": " + $parameter["resource"]}}`,
	Description: "Starts when Discord messages are received",
	Defaults:    map[string]any{"name": "Discord Webhook"},
	Inputs:      []string{},
	Outputs:     []string{"main"},
	Credentials: []core.CredentialRequirement{{Name: credentials.Name, Required: true}},
	Properties: []core.Property{
		{
			DisplayName:      "Resource",
			Name:             "resource",
			Type:             core.PropertyTypeOptions,
			NoDataExpression: true,
			Options:          []core.PropertyOption{{Name: "Message", Value: ResourceMessage}},
			Default:          ResourceMessage,
		},
		{
			DisplayName:      "Operation",
			Name:             "operation",
			Type:             core.PropertyTypeOptions,
			NoDataExpression: true,
			DisplayOptions:   &core.DisplayOptions{Show: map[string][]string{"resource": {ResourceMessage}}},
			Options: []core.PropertyOption{{
				Name:        "Receive",
				Value:       OperationReceive,
				Description: "Receive messages from a Discord channel",
				Action:      "Receive a message",
			}},
			Default: OperationReceive,
		},
		{
			DisplayName: "Channel ID",
			Name:        "channelId",
			Type:        core.PropertyTypeString,
			Default:     "",
			Required:    true,
			DisplayOptions: &core.DisplayOptions{Show: map[string][]string{
				"operation": {OperationReceive},
				"resource":  {ResourceMessage},
			}},
			Description: "The ID of the Discord channel to receive messages from",
		},
		{
			DisplayName: "Timeout",
			Name:        "timeout",
			Type:        core.PropertyTypeNumber,
			Default:     0,
			DisplayOptions: &core.DisplayOptions{Show: map[string][]string{
				"operation": {OperationReceive},
				"resource":  {ResourceMessage},
			}},
			Description: "Seconds to wait for a message before failing, 0 waits until the execution ends",
		},
	},
}

// largest timeout a time.Duration holds
var maxTimeoutSeconds = time.Duration(math.MaxInt64).Seconds()

// Node The Discord Webhook trigger.
type Node struct {
	DiscordService *discord.Service
}

func (n *Node) Description() core.NodeDescription {
	return description
}

func (n *Node) Init(reg *core.ServiceRegistry) error {
	// discordService is a MUST have. return error if not found.
	return reg.FetchService(&n.DiscordService)
}

// Execute resolve credentials and parameters, then block on a Bridge until one message arrives.
func (n *Node) Execute(ef core.ExecuteFunctions) ([][]core.Item, error) {
	creds, err := ef.GetCredentials(credentials.Name)
	if err != nil {
		ef.Logger().Debugf("credentials unavailable: %v", err)
	}
	cred := credentials.Resolve(creds)

	cfg, err := n.triggerConfig(ef)
	if err != nil {
		return nil, n.operationError(newError(KindConfiguration, err))
	}

	bridge := NewBridge(n.DiscordService, ef.Logger())
	bridge.ReconnectGrace = n.DiscordService.ReconnectGrace
	record, err := bridge.Run(ef.Context(), cred, cfg)
	if err != nil {
		return nil, n.operationError(err)
	}
	return [][]core.Item{{record.Item()}}, nil
}

func (n *Node) triggerConfig(ef core.ExecuteFunctions) (TriggerConfig, error) {
	for name, want := range map[string]string{"resource": ResourceMessage, "operation": OperationReceive} {
		got, err := core.StringParameter(ef, name, 0)
		if err != nil {
			return TriggerConfig{}, err
		}
		if got != want {
			return TriggerConfig{}, fmt.Errorf("unsupported %s %q", name, got)
		}
	}
	channelID, err := core.StringParameter(ef, "channelId", 0)
	if err != nil {
		return TriggerConfig{}, err
	}
	seconds, err := core.NumberParameter(ef, "timeout", 0)
	if err != nil {
		return TriggerConfig{}, err
	}
	if math.IsNaN(seconds) || seconds < 0 {
		return TriggerConfig{}, fmt.Errorf("timeout must not be negative, got %v", seconds)
	}
	if seconds >= maxTimeoutSeconds {
		return TriggerConfig{}, fmt.Errorf("timeout must be below %.0f seconds, got %v", maxTimeoutSeconds, seconds)
	}
	return TriggerConfig{
		ChannelID: channelID,
		Timeout:   time.Duration(seconds * float64(time.Second)),
	}, nil
}

func (n *Node) operationError(err error) error {
	return &core.NodeOperationError{Node: description.DisplayName, Err: err}
}

// NewNode initialize the node against the registry, the discord service must be registered.
func NewNode(reg *core.ServiceRegistry) (core.NodeType, error) {
	var node Node
	if err := (&node).Init(reg); err != nil {
		return nil, fmt.Errorf("discord webhook node MUST have the discord service injected: %w", err)
	}
	return &node, nil
}
