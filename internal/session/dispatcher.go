// Package session implements the gateway's client-facing stream: one
// persistent bidirectional text-frame connection per client, each frame
// either a structured chat envelope or an opaque echo.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agentrun/gateway/internal/looper"
)

const (
	maxFramePayloadBytes = 1 << 20
	pongWait             = 45 * time.Second
	writeWait            = 10 * time.Second
)

// Dispatcher upgrades incoming HTTP connections to the gateway's text-frame
// stream and runs each chat envelope through a Tool Loop Engine.
type Dispatcher struct {
	Engine      *looper.Engine
	AgentName   string
	SettingsDir string
	Logger      *slog.Logger

	upgrader websocket.Upgrader
}

// NewDispatcher builds a Dispatcher ready to accept connections.
func NewDispatcher(engine *looper.Engine, agentName, settingsDir string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Engine:      engine,
		AgentName:   agentName,
		SettingsDir: settingsDir,
		Logger:      logger.With("component", "session"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session until the client
// disconnects or sends nothing (no frame, no pong) for pongWait while the
// session waits for its next frame. One goroutine per session; the read loop is the only writer
// of state, so no locking is needed to keep envelopes strictly serialized.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := &clientSession{
		dispatcher: d,
		conn:       conn,
		id:         uuid.NewString(),
	}
	s.run()
}

type clientSession struct {
	dispatcher *Dispatcher
	conn       *websocket.Conn
	id         string
}

func (s *clientSession) run() {
	defer s.conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.conn.SetReadLimit(maxFramePayloadBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := s.sendHello(); err != nil {
		return
	}

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		switch messageType {
		case websocket.TextMessage:
			s.handleText(ctx, data)
		case websocket.BinaryMessage:
			s.sendErrorFrame("binary frames are not supported on this stream")
		case websocket.CloseMessage:
			return
		}
	}
}

func (s *clientSession) handleText(ctx context.Context, data []byte) {
	if validateChatFrame(data) != nil {
		// Not a chat envelope: echo back verbatim, for health checks.
		s.sendResponseFrame(string(data))
		return
	}

	var in inboundChatFrame
	if err := json.Unmarshal(data, &in); err != nil {
		s.sendErrorFrame(fmt.Sprintf("malformed chat envelope: %v", err))
		return
	}

	reply, err := s.dispatchChat(ctx, in)
	if err != nil {
		s.sendErrorFrame(err.Error())
		return
	}
	s.sendResponseFrame(reply)
}

func (s *clientSession) dispatchChat(ctx context.Context, in inboundChatFrame) (string, error) {
	if s.dispatcher.Engine == nil {
		return "", errors.New("tool loop engine unavailable")
	}

	userMessage, err := lastUserMessage(in.Messages)
	if err != nil {
		return "", err
	}

	req := looper.Request{
		ChatKey:     "ws:" + s.id,
		UserMessage: userMessage,
		ProviderID:  in.Provider,
		Model:       in.Model,
		APIKey:      in.APIKey,
		BaseURL:     in.BaseURL,
		Transport:   looper.TransportContext{Channel: "gateway", Sender: s.id},
	}

	res, err := s.dispatcher.Engine.Run(ctx, req)
	if err != nil {
		var capped *looper.CappedError
		if errors.As(err, &capped) {
			return "", fmt.Errorf("loop-capped: %s", capped.Error())
		}
		return "", err
	}
	return res.FinalReply, nil
}

func lastUserMessage(messages []chatMessageWire) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, nil
		}
	}
	return "", errors.New("chat envelope carries no user message")
}

func (s *clientSession) sendHello() error {
	return s.write(helloFrame{
		Type:        "hello",
		Agent:       s.dispatcher.AgentName,
		SettingsDir: s.dispatcher.SettingsDir,
	})
}

func (s *clientSession) sendResponseFrame(received string) {
	_ = s.write(responseFrame{Type: "response", OK: true, Received: received})
}

func (s *clientSession) sendErrorFrame(message string) {
	s.dispatcher.Logger.Warn("session error", "session_id", s.id, "message", message)
	_ = s.write(errorFrame{Type: "error", OK: false, Message: message})
}

func (s *clientSession) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
