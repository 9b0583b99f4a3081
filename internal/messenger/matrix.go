package messenger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MatrixAdapter runs mautrix's own sync loop in the background (Matrix's
// protocol is itself long-poll based) and buffers inbound events into a
// channel; Poll drains whatever has accumulated since the last tick
// without blocking.
type MatrixAdapter struct {
	client *mautrix.Client
	userID string

	buffer  chan InboundMessage
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewMatrixAdapter builds an adapter against a homeserver using an
// already-issued access token.
func NewMatrixAdapter(homeserver, userID, accessToken string) (*MatrixAdapter, error) {
	client, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("messenger: matrix client: %w", err)
	}
	return &MatrixAdapter{
		client: client,
		userID: userID,
		buffer: make(chan InboundMessage, 256),
		stopCh: make(chan struct{}),
	}, nil
}

func (a *MatrixAdapter) Type() string { return "matrix" }

func (a *MatrixAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}
	a.running = true

	syncer, ok := a.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("messenger: matrix client syncer has unexpected type")
	}
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		a.handleEvent(evt)
	})

	a.wg.Add(1)
	go a.syncLoop(ctx)
	return nil
}

func (a *MatrixAdapter) syncLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		if err := a.client.SyncWithContext(ctx); err != nil {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (a *MatrixAdapter) handleEvent(evt *event.Event) {
	if string(evt.Sender) == a.userID {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || (content.MsgType != event.MsgText && content.MsgType != event.MsgNotice) {
		return
	}
	msg := InboundMessage{ChatID: string(evt.RoomID), SenderID: string(evt.Sender), Text: content.Body}
	select {
	case a.buffer <- msg:
	default:
	}
}

func (a *MatrixAdapter) Poll(ctx context.Context) ([]InboundMessage, error) {
	var out []InboundMessage
	for {
		select {
		case msg := <-a.buffer:
			out = append(out, msg)
		default:
			return out, nil
		}
	}
}

func (a *MatrixAdapter) Send(ctx context.Context, chatID, text string) error {
	_, err := a.client.SendMessageEvent(ctx, id.RoomID(chatID), event.EventMessage, &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	})
	return err
}

func (a *MatrixAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	close(a.stopCh)
	a.mu.Unlock()

	a.client.StopSync()
	a.wg.Wait()
	return nil
}
