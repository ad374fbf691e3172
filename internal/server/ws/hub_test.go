package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan error, 1)
	go func() { ran <- h.Run(ctx) }()
	return h, cancel, ran
}

func TestHubDeliversBroadcast(t *testing.T) {
	h, cancel, _ := startHub(t)
	defer cancel()

	c := &client{hub: h, send: make(chan []byte, 1)}
	if !h.add(c) {
		t.Fatal("add returned false on a running hub")
	}

	h.Broadcast("sync_completed", map[string]any{"upserted": 3})

	select {
	case msg := <-c.send:
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Type != "sync_completed" {
			t.Errorf("type = %q, want sync_completed", env.Type)
		}
		if env.Timestamp == "" {
			t.Error("timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}
}

func TestHubAddAfterShutdown(t *testing.T) {
	h, cancel, ran := startHub(t)

	cancel()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Neither call may block once the event loop has exited.
	c := &client{hub: h, send: make(chan []byte, 1)}
	if h.add(c) {
		t.Error("add returned true after shutdown")
	}
	h.remove(c)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	h, cancel, ran := startHub(t)

	c := &client{hub: h, send: make(chan []byte, 1)}
	if !h.add(c) {
		t.Fatal("add returned false on a running hub")
	}

	cancel()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed on shutdown")
	}
}
