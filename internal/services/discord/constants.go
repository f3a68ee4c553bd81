package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// MessageIntents minimum capability set to read guild messages and their text.
const MessageIntents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// ServiceName name of the gateway service in the registry.
const ServiceName = "discord"

// DefaultReconnectGrace how long a dropped gateway may take to come back before a waiting execution fails.
const DefaultReconnectGrace = 30 * time.Second
