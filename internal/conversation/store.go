// Package conversation implements the per-chat message history: system
// prompt pinning at index 0, and bounded trimming that never orphans a
// tool result.
package conversation

import (
	"sync"

	"github.com/agentrun/gateway/pkg/models"
)

// DefaultCap is the default maximum number of entries kept per chat.
const DefaultCap = 50

// Store holds one ordered message list per chat key
// ("<transport-id>:<chat-id>"), created lazily on first Append.
type Store struct {
	mu    sync.Mutex
	cap   int
	chats map[string][]models.ChatMessage
}

// New constructs a Store with the given trim cap. A cap <= 0 uses
// DefaultCap.
func New(cap int) *Store {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Store{cap: cap, chats: map[string][]models.ChatMessage{}}
}

// Append adds message to key's conversation and trims it back under the
// cap, never splitting a tool round.
func (s *Store) Append(key string, message models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.chats[key], message)
	s.chats[key] = trim(msgs, s.cap)
}

// Keys returns every chat key with at least one message, for session
// inspection tools.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.chats))
	for k := range s.chats {
		out = append(out, k)
	}
	return out
}

// Len returns the current message count for key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats[key])
}

// Clear discards key's conversation entirely.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, key)
}

// Snapshot returns a copy of key's current message list.
func (s *Store) Snapshot(key string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.chats[key]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// SetSystem ensures key's conversation has message as its index-0 system
// entry, inserting it if absent or replacing it if the content changed.
func (s *Store) SetSystem(key string, message models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.chats[key]
	if len(msgs) > 0 && msgs[0].Role == models.RoleSystem {
		if msgs[0].Content == message.Content {
			return
		}
		msgs[0] = message
		s.chats[key] = msgs
		return
	}
	next := make([]models.ChatMessage, 0, len(msgs)+1)
	next = append(next, message)
	next = append(next, msgs...)
	s.chats[key] = trim(next, s.cap)
}

// trim drops entries from index 1 upward (oldest first) until the list is
// at or under cap. If the first surviving entry would be an orphaned
// tool-result (one whose assistant tool-call entry was just dropped), the
// trim window is extended forward to also drop that tool-result.
func trim(msgs []models.ChatMessage, cap int) []models.ChatMessage {
	if len(msgs) <= cap {
		return msgs
	}

	hasSystem := len(msgs) > 0 && msgs[0].Role == models.RoleSystem
	start := 0
	if hasSystem {
		start = 1
	}

	excess := len(msgs) - cap
	cut := start + excess

	// Extend the cut forward while it would leave an orphaned tool-result
	// at the new head: a tool-result with no preceding assistant message
	// in the surviving slice.
	for cut < len(msgs) && msgs[cut].Role == models.RoleToolResult {
		cut++
	}

	out := make([]models.ChatMessage, 0, len(msgs)-cut+start)
	if hasSystem {
		out = append(out, msgs[0])
	}
	out = append(out, msgs[cut:]...)
	return out
}
