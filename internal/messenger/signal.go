package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// SignalAdapter shells out to signal-cli once per Poll tick, matching the
// poller's own pull cadence rather than keeping a persistent subprocess
// open. No idiomatic Go Signal client exists to wrap instead.
type SignalAdapter struct {
	cliPath string
	account string
	runner  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSignalAdapter builds an adapter that drives the signal-cli binary on
// PATH (or at cliPath, if non-empty) for the given linked account.
func NewSignalAdapter(cliPath, account string) (*SignalAdapter, error) {
	if cliPath == "" {
		cliPath = "signal-cli"
	}
	if _, err := exec.LookPath(cliPath); err != nil {
		return nil, fmt.Errorf("messenger: signal-cli not found at %q: %w", cliPath, err)
	}
	return &SignalAdapter{cliPath: cliPath, account: account, runner: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (a *SignalAdapter) Type() string                    { return "signal" }
func (a *SignalAdapter) Start(ctx context.Context) error { return nil }
func (a *SignalAdapter) Stop(ctx context.Context) error  { return nil }

type signalEnvelopeWire struct {
	Envelope struct {
		Source      string `json:"source"`
		DataMessage *struct {
			Message string `json:"message"`
		} `json:"dataMessage"`
	} `json:"envelope"`
}

func (a *SignalAdapter) Poll(ctx context.Context) ([]InboundMessage, error) {
	out, err := a.runner(ctx, a.cliPath, "-a", a.account, "--output=json", "receive")
	if err != nil {
		return nil, fmt.Errorf("messenger: signal-cli receive: %w", err)
	}

	var messages []InboundMessage
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var wire signalEnvelopeWire
		if err := json.Unmarshal([]byte(line), &wire); err != nil {
			continue
		}
		if wire.Envelope.DataMessage == nil || wire.Envelope.DataMessage.Message == "" {
			continue
		}
		messages = append(messages, InboundMessage{
			ChatID:   wire.Envelope.Source,
			SenderID: wire.Envelope.Source,
			Text:     wire.Envelope.DataMessage.Message,
		})
	}
	return messages, nil
}

func (a *SignalAdapter) Send(ctx context.Context, chatID, text string) error {
	_, err := a.runner(ctx, a.cliPath, "-a", a.account, "send", "-m", text, chatID)
	if err != nil {
		return fmt.Errorf("messenger: signal-cli send: %w", err)
	}
	return nil
}
