package messenger

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type fakeDiscordSession struct {
	messages map[string][]*discordgo.Message
	sent     []struct{ channelID, content string }
}

func (f *fakeDiscordSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error) {
	return f.messages[channelID], nil
}

func (f *fakeDiscordSession) ChannelMessageSend(channelID string, content string) (*discordgo.Message, error) {
	f.sent = append(f.sent, struct{ channelID, content string }{channelID, content})
	return &discordgo.Message{}, nil
}

func TestDiscordAdapterPollSkipsBotsAndOrdersOldestFirst(t *testing.T) {
	session := &fakeDiscordSession{messages: map[string][]*discordgo.Message{
		"chan-1": {
			{ID: "3", Content: "newest", Author: &discordgo.User{ID: "u1"}},
			{ID: "2", Content: "from bot", Author: &discordgo.User{ID: "bot1", Bot: true}},
			{ID: "1", Content: "oldest", Author: &discordgo.User{ID: "u1"}},
		},
	}}
	a := &DiscordAdapter{session: session, channelIDs: []string{"chan-1"}, lastSeen: map[string]string{}}

	msgs, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "oldest" || msgs[1].Text != "newest" {
		t.Fatalf("msgs = %+v, want oldest-then-newest order", msgs)
	}
	if a.lastSeen["chan-1"] != "3" {
		t.Fatalf("lastSeen = %q, want 3", a.lastSeen["chan-1"])
	}
}

func TestDiscordAdapterSend(t *testing.T) {
	session := &fakeDiscordSession{}
	a := &DiscordAdapter{session: session}
	if err := a.Send(context.Background(), "chan-1", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(session.sent) != 1 || session.sent[0].channelID != "chan-1" || session.sent[0].content != "hi" {
		t.Fatalf("sent = %+v", session.sent)
	}
}
