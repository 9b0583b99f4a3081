// Package looper implements the Tool Loop Engine: the bounded
// model-call/tool-dispatch/context-append cycle at the center of the
// gateway, normalizing away provider differences and routing each
// requested tool call to the vault, skills registry, or tool catalog.
package looper

import (
	"fmt"
	"strings"

	"github.com/agentrun/gateway/internal/vault"
)

// DefaultMaxRounds is the round cap applied when Engine.MaxRounds is unset.
const DefaultMaxRounds = 25

// NoReply and HeartbeatOK are the sentinel final replies that suppress an
// outbound send on transports that would otherwise relay them.
const (
	NoReply     = "NO_REPLY"
	HeartbeatOK = "HEARTBEAT_OK"
)

// TransportContext supplies the per-message detail the system prompt's
// context block folds in, when available.
type TransportContext struct {
	Channel  string
	Sender   string
	Platform string
}

// Request is one Tool Loop Engine invocation: a chat-keyed conversation,
// the new inbound message, and the provider/model to target.
type Request struct {
	ChatKey       string
	UserMessage   string
	ProviderID    string
	Model         string
	APIKey        string
	BaseURL       string
	MaxTokens     int
	Temperature   float64
	Transport     TransportContext
	AccessContext vault.AccessContext
}

// Result is what Run returns on successful (including loop-capped)
// completion.
type Result struct {
	FinalReply string
	Rounds     int
}

// CappedError reports that the round cap was hit without the model
// producing a tool-call-free reply. FinalReply carries whatever text had
// accumulated across rounds up to that point.
type CappedError struct {
	Rounds     int
	FinalReply string
}

func (e *CappedError) Error() string {
	return fmt.Sprintf("loop-capped: reached %d rounds without a final reply", e.Rounds)
}

// IsSentinelReply reports whether reply (after trimming) is an exact
// sentinel match, for callers deciding whether to suppress an outbound
// send.
func IsSentinelReply(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	return trimmed == NoReply || trimmed == HeartbeatOK
}
