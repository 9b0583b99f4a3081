package messenger

import (
	"context"
	"fmt"
	"strconv"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// telegramClient narrows *bot.Bot to what the adapter needs, so tests can
// inject a fake without a live token.
type telegramClient interface {
	GetUpdates(ctx context.Context, params *tgbot.GetUpdatesParams) ([]tgmodels.Update, error)
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramAdapter pulls updates with one non-blocking GetUpdates call
// (timeout 0) per tick, tracking the update offset between calls.
type TelegramAdapter struct {
	client telegramClient
	offset int
}

// NewTelegramAdapter builds an adapter backed by a real Telegram bot client.
func NewTelegramAdapter(token string) (*TelegramAdapter, error) {
	b, err := tgbot.New(token)
	if err != nil {
		return nil, fmt.Errorf("messenger: telegram client: %w", err)
	}
	return &TelegramAdapter{client: b}, nil
}

func (a *TelegramAdapter) Type() string                   { return "telegram" }
func (a *TelegramAdapter) Start(ctx context.Context) error { return nil }
func (a *TelegramAdapter) Stop(ctx context.Context) error  { return nil }

func (a *TelegramAdapter) Poll(ctx context.Context) ([]InboundMessage, error) {
	updates, err := a.client.GetUpdates(ctx, &tgbot.GetUpdatesParams{Offset: a.offset, Timeout: 0})
	if err != nil {
		return nil, fmt.Errorf("messenger: telegram get updates: %w", err)
	}

	out := make([]InboundMessage, 0, len(updates))
	for _, u := range updates {
		if u.ID >= a.offset {
			a.offset = u.ID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		out = append(out, InboundMessage{
			ChatID:   strconv.FormatInt(u.Message.Chat.ID, 10),
			SenderID: telegramSenderID(u.Message.From),
			Text:     u.Message.Text,
		})
	}
	return out, nil
}

func (a *TelegramAdapter) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("messenger: telegram chat id %q: %w", chatID, err)
	}
	_, err = a.client.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: id, Text: text})
	return err
}

func telegramSenderID(from *tgmodels.User) string {
	if from == nil {
		return ""
	}
	return strconv.FormatInt(from.ID, 10)
}
