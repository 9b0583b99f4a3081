package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookAdapterReceivesAndPollDrains(t *testing.T) {
	a := NewWebhookAdapter("127.0.0.1:0", "")
	// Skip the real listen path for this unit test; exercise the HTTP
	// handler directly so the test has no port-binding race.
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"chat_id":"room-1","sender_id":"alice","text":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	a.handleInbound(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	msgs, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ChatID != "room-1" || msgs[0].Text != "hi" {
		t.Fatalf("msgs = %+v", msgs)
	}

	// Nothing left to drain.
	msgs, err = a.Poll(context.Background())
	if err != nil || len(msgs) != 0 {
		t.Fatalf("second Poll = %+v, %v", msgs, err)
	}
}

func TestWebhookAdapterRejectsMissingFields(t *testing.T) {
	a := NewWebhookAdapter("127.0.0.1:0", "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	a.handleInbound(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookAdapterSendPostsToReplyURL(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewWebhookAdapter("127.0.0.1:0", srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Send(ctx, "room-1", "reply text"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotBody["chat_id"] != "room-1" || gotBody["text"] != "reply text" {
		t.Fatalf("reply body = %+v", gotBody)
	}
}

func TestWebhookAdapterSendWithoutReplyURLErrors(t *testing.T) {
	a := NewWebhookAdapter("127.0.0.1:0", "")
	if err := a.Send(context.Background(), "room-1", "hi"); err == nil {
		t.Fatalf("expected error when no reply url is configured")
	}
}
