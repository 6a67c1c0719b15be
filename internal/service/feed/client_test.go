package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	drepo "OddsEdge/internal/domain/repository"
	applogger "OddsEdge/pkg/logger"

	"github.com/gorilla/websocket"
)

func feedTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestNextDelayCaps(t *testing.T) {
	max := 8 * time.Second
	d := time.Second
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second}
	for i, w := range want {
		d = nextDelay(d, max)
		if d != w {
			t.Fatalf("step %d: delay %v, want %v", i, d, w)
		}
	}
}

func TestReconnectParksFailedAfterMaxRetries(t *testing.T) {
	c := New(Config{
		WebSocketURL:   "ws://127.0.0.1:1", // nothing listens here
		ReconnectDelay: time.Millisecond,
		ReconnectMax:   4 * time.Millisecond,
		MaxRetries:     3,
	}, feedTestLogger(t))

	err := c.Reconnect(context.Background())
	if err == nil {
		t.Fatalf("expected terminal reconnect error")
	}
	if got := c.State(); got != drepo.StreamFailed {
		t.Fatalf("state %v, want FAILED", got)
	}
}

func TestReconnectStopsOnCancel(t *testing.T) {
	c := New(Config{
		WebSocketURL:   "ws://127.0.0.1:1",
		ReconnectDelay: time.Hour, // cancellation must beat the backoff wait
	}, feedTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Reconnect(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if got := c.State(); got != drepo.StreamClosed {
		t.Fatalf("state %v, want CLOSED", got)
	}
}

func TestReconnectRecoversAgainstLiveServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Drain subscribe messages until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(Config{
		WebSocketURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Markets:        []string{"moneyline"},
		ReconnectDelay: time.Millisecond,
		MaxRetries:     3,
	}, feedTestLogger(t))
	defer c.Close()

	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if got := c.State(); got != drepo.StreamConnected {
		t.Fatalf("state %v, want CONNECTED", got)
	}
}
