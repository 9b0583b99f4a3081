package messenger

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession narrows *discordgo.Session to what the adapter needs, so
// tests can inject a fake without a live token.
type discordSession interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)
}

// DiscordAdapter polls a fixed set of channels via REST (ChannelMessages)
// rather than opening the gateway websocket connection, tracking the last
// seen message id per channel between ticks.
type DiscordAdapter struct {
	session    discordSession
	channelIDs []string
	lastSeen   map[string]string
}

// NewDiscordAdapter builds an adapter backed by a real discordgo session.
// The session is never Open()'d: REST polling needs no gateway connection.
func NewDiscordAdapter(token string, channelIDs []string) (*DiscordAdapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("messenger: discord session: %w", err)
	}
	return &DiscordAdapter{session: session, channelIDs: channelIDs, lastSeen: map[string]string{}}, nil
}

func (a *DiscordAdapter) Type() string                    { return "discord" }
func (a *DiscordAdapter) Start(ctx context.Context) error { return nil }
func (a *DiscordAdapter) Stop(ctx context.Context) error  { return nil }

func (a *DiscordAdapter) Poll(ctx context.Context) ([]InboundMessage, error) {
	var out []InboundMessage
	for _, channelID := range a.channelIDs {
		msgs, err := a.session.ChannelMessages(channelID, 50, "", a.lastSeen[channelID], "")
		if err != nil {
			return nil, fmt.Errorf("messenger: discord channel messages %s: %w", channelID, err)
		}
		if len(msgs) == 0 {
			continue
		}
		// discordgo returns newest-first; walk oldest-to-newest so the
		// offset we record at the end is the truly latest message.
		for i := len(msgs) - 1; i >= 0; i-- {
			m := msgs[i]
			if m.Author != nil && m.Author.Bot {
				continue
			}
			out = append(out, InboundMessage{ChatID: channelID, SenderID: authorID(m), Text: m.Content})
		}
		a.lastSeen[channelID] = msgs[0].ID
	}
	return out, nil
}

func (a *DiscordAdapter) Send(ctx context.Context, chatID, text string) error {
	_, err := a.session.ChannelMessageSend(chatID, text)
	return err
}

func authorID(m *discordgo.Message) string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}
