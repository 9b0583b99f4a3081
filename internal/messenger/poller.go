// Package messenger fans inbound messages from configured chat platforms
// into the Tool Loop Engine and routes replies back to their origin.
package messenger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentrun/gateway/internal/looper"
)

// DefaultInterval and MinInterval bound the poll cadence per spec.md §4.8.
const (
	DefaultInterval = 2 * time.Second
	MinInterval     = 500 * time.Millisecond
)

// InboundMessage is one message pulled from a transport adapter.
type InboundMessage struct {
	ChatID   string
	SenderID string
	Text     string
}

// Adapter is a pull-style transport connector. Start/Stop bracket any
// background work a transport needs (a webhook HTTP server, a Matrix sync
// loop); Poll is called once per tick and must return promptly, buffering
// internally rather than blocking for new input.
type Adapter interface {
	Type() string
	Start(ctx context.Context) error
	Poll(ctx context.Context) ([]InboundMessage, error)
	Send(ctx context.Context, chatID, text string) error
	Stop(ctx context.Context) error
}

// Poller ticks every Interval, pulls new messages from each Adapter, and
// runs each through Engine, keying conversations "<transport>:<chat-id>".
type Poller struct {
	Engine   *looper.Engine
	Adapters []Adapter
	Interval time.Duration
	Logger   *slog.Logger

	ProviderID  string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

func (p *Poller) interval() time.Duration {
	switch {
	case p.Interval <= 0:
		return DefaultInterval
	case p.Interval < MinInterval:
		return MinInterval
	default:
		return p.Interval
	}
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run starts every adapter, then ticks until ctx is cancelled, stopping
// every adapter on the way out.
func (p *Poller) Run(ctx context.Context) error {
	for _, a := range p.Adapters {
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("messenger: start %s adapter: %w", a.Type(), err)
		}
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, a := range p.Adapters {
			if err := a.Stop(stopCtx); err != nil {
				p.logger().Warn("adapter stop failed", "transport", a.Type(), "error", err)
			}
		}
	}()

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	for _, a := range p.Adapters {
		messages, err := a.Poll(ctx)
		if err != nil {
			p.logger().Warn("poll failed", "transport", a.Type(), "error", err)
			continue
		}
		for _, m := range messages {
			p.handle(ctx, a, m)
		}
	}
}

func (p *Poller) handle(ctx context.Context, a Adapter, m InboundMessage) {
	chatKey := a.Type() + ":" + m.ChatID
	req := looper.Request{
		ChatKey:     chatKey,
		UserMessage: m.Text,
		ProviderID:  p.ProviderID,
		Model:       p.Model,
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Transport:   looper.TransportContext{Channel: a.Type(), Sender: m.SenderID, Platform: a.Type()},
	}

	res, err := p.Engine.Run(ctx, req)
	if err != nil {
		p.logger().Warn("tool loop failed", "transport", a.Type(), "chat_key", chatKey, "error", err)
		return
	}
	if looper.IsSentinelReply(res.FinalReply) {
		return
	}
	if err := a.Send(ctx, m.ChatID, res.FinalReply); err != nil {
		p.logger().Warn("send failed", "transport", a.Type(), "chat_key", chatKey, "error", err)
	}
}
