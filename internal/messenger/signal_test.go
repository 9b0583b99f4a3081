package messenger

import (
	"context"
	"testing"
)

func TestSignalAdapterPollParsesEnvelopesAndSkipsNonText(t *testing.T) {
	a := &SignalAdapter{
		cliPath: "signal-cli",
		account: "+15551234567",
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte(
				`{"envelope":{"source":"+15557654321","dataMessage":{"message":"hello there"}}}` + "\n" +
					`{"envelope":{"source":"+15557654322","typingMessage":{"action":"STARTED"}}}` + "\n",
			), nil
		},
	}

	msgs, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].ChatID != "+15557654321" || msgs[0].Text != "hello there" {
		t.Fatalf("msg = %+v", msgs[0])
	}
}

func TestSignalAdapterSendInvokesCLIWithRecipientAndMessage(t *testing.T) {
	var gotArgs []string
	a := &SignalAdapter{
		cliPath: "signal-cli",
		account: "+15551234567",
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			gotArgs = args
			return nil, nil
		},
	}

	if err := a.Send(context.Background(), "+15557654321", "reply text"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := []string{"-a", "+15551234567", "send", "-m", "reply text", "+15557654321"}
	if len(gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", gotArgs, want)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("args = %v, want %v", gotArgs, want)
		}
	}
}
