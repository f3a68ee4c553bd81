package discord

import (
	"github.com/bwmarrin/discordgo"
)

// IsMessageFromBot a message with no author or a bot author is never a trigger candidate.
func IsMessageFromBot(m *discordgo.Message) bool {
	if m == nil || m.Author == nil {
		return true
	}
	// Ignore chain requests from bots, including ourselves
	return m.Author.Bot
}

// MessageTimestamp creation time of the message in epoch milliseconds.
// Falls back to the snowflake when the payload carries no timestamp.
func MessageTimestamp(m *discordgo.Message) int64 {
	if !m.Timestamp.IsZero() {
		return m.Timestamp.UnixMilli()
	}
	created, err := discordgo.SnowflakeTimestamp(m.ID)
	if err != nil {
		return 0
	}
	return created.UnixMilli()
}
