package session

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// chatMessageWire is the wire shape of one entry in a chat envelope's
// messages list.
type chatMessageWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// inboundChatFrame is the client-to-server chat envelope described in
// the gateway wire protocol.
type inboundChatFrame struct {
	Type     string            `json:"type"`
	Messages []chatMessageWire `json:"messages"`
	Model    string            `json:"model"`
	Provider string            `json:"provider"`
	BaseURL  string            `json:"base_url"`
	APIKey   string            `json:"api_key"`
}

type helloFrame struct {
	Type        string `json:"type"`
	Agent       string `json:"agent"`
	SettingsDir string `json:"settings_dir"`
}

type responseFrame struct {
	Type     string `json:"type"`
	OK       bool   `json:"ok"`
	Received string `json:"received"`
}

type errorFrame struct {
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

const chatFrameSchema = `{
  "type": "object",
  "required": ["type", "messages"],
  "properties": {
    "type": { "const": "chat" },
    "messages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": { "enum": ["system", "user", "assistant"] },
          "content": { "type": "string" }
        },
        "additionalProperties": true
      }
    },
    "model": { "type": "string" },
    "provider": { "type": "string" },
    "base_url": { "type": "string" },
    "api_key": { "type": "string" }
  },
  "additionalProperties": true
}`

var chatSchemaOnce struct {
	once    sync.Once
	schema  *jsonschema.Schema
	initErr error
}

func compiledChatSchema() (*jsonschema.Schema, error) {
	chatSchemaOnce.once.Do(func() {
		chatSchemaOnce.schema, chatSchemaOnce.initErr = jsonschema.CompileString("chat_frame", chatFrameSchema)
	})
	return chatSchemaOnce.schema, chatSchemaOnce.initErr
}

// validateChatFrame reports whether raw satisfies the chat envelope shape.
// Any frame that fails this validation is treated as an opaque echo, never
// as a protocol error, per the dispatcher's "structured chat or opaque
// echo" contract.
func validateChatFrame(raw []byte) error {
	schema, err := compiledChatSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}
