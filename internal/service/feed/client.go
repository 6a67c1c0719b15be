package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"OddsEdge/internal/domain/models"
	drepo "OddsEdge/internal/domain/repository"
	applogger "OddsEdge/pkg/logger"

	"github.com/gorilla/websocket"
)

// Config holds feed vendor connection settings.
type Config struct {
	APIKey         string
	WebSocketURL   string
	Markets        []string
	ReconnectDelay time.Duration // initial backoff
	ReconnectMax   time.Duration // backoff cap
	MaxRetries     int           // consecutive failures before FAILED; 0 = unbounded
	PingInterval   time.Duration
}

// Client implements a QuoteStream backed by the odds vendor WebSocket. The
// connection is an explicit state machine: CONNECTING -> CONNECTED, read
// errors move it to RECONNECTING with capped exponential backoff, exhausting
// the retry budget parks it in FAILED until the operator intervenes.
type Client struct {
	cfg    Config
	logger *applogger.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    drepo.StreamState
	attempts int

	pingOnce sync.Once
}

// New creates a feed client.
func New(cfg Config, logger *applogger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	return &Client{cfg: cfg, logger: logger, state: drepo.StreamClosed}
}

// State returns the current connection state.
func (c *Client) State() drepo.StreamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s drepo.StreamState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(drepo.StreamConnecting)

	u := fmt.Sprintf("%s?apiKey=%s", c.cfg.WebSocketURL, c.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		c.setState(drepo.StreamClosed)
		return fmt.Errorf("feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = drepo.StreamConnected
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("feed connected", applogger.String("url", c.cfg.WebSocketURL))
	return nil
}

// Subscribe subscribes to the configured market keys.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("feed not connected")
	}
	for _, m := range c.cfg.Markets {
		msg := map[string]string{"action": "subscribe", "market": m}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", m, err)
		}
	}
	c.logger.Info("feed subscribed", applogger.Strings("markets", c.cfg.Markets))
	return nil
}

// frame is the vendor wire format: one message carries a batch of quote
// updates for one book.
type frame struct {
	Type   string            `json:"type"`
	Quotes []models.RawQuote `json:"data"`
}

// Read streams raw quotes and errors. Channels close when the read loop
// exits; a read error is delivered before closing so the collector can
// trigger Reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.RawQuote, <-chan error) {
	quotes := make(chan *models.RawQuote, 1024)
	errs := make(chan error, 1)

	// One ping loop per client; it follows the current conn across
	// reconnects, so Read being called again must not start another.
	c.pingOnce.Do(func() { go c.pingLoop(ctx) })

	go func() {
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("feed conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("feed read: %w", err)
				return
			}

			var f frame
			if err := json.Unmarshal(b, &f); err != nil {
				// ignore non-quote frames (heartbeats, acks)
				continue
			}
			if f.Type != "odds" {
				continue
			}
			for i := range f.Quotes {
				q := f.Quotes[i]
				select {
				case quotes <- &q:
				default:
					// drop on backpressure; the book only needs the newest
				}
			}
		}
	}()

	return quotes, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Reconnect closes the connection and retries with capped exponential
// backoff. After MaxRetries consecutive failures the client parks in FAILED
// and returns; it will not silently retry forever.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.closeConn()
	c.setState(drepo.StreamReconnecting)

	delay := c.cfg.ReconnectDelay
	for {
		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		c.mu.Unlock()

		if c.cfg.MaxRetries > 0 && attempts > c.cfg.MaxRetries {
			c.setState(drepo.StreamFailed)
			return fmt.Errorf("feed reconnect: gave up after %d attempts", attempts-1)
		}

		select {
		case <-ctx.Done():
			c.setState(drepo.StreamClosed)
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := c.Connect(ctx); err == nil {
			if err := c.Subscribe(ctx); err == nil {
				return nil
			}
			_ = c.closeConn()
		}
		c.setState(drepo.StreamReconnecting)
		c.logger.Warn("feed reconnect attempt failed",
			applogger.Int("attempt", attempts),
			applogger.Duration("next_delay", delay),
		)

		delay = nextDelay(delay, c.cfg.ReconnectMax)
	}
}

// nextDelay doubles the backoff up to the cap.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		d = max
	}
	return d
}

func (c *Client) closeConn() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Close closes the connection and marks the stream CLOSED.
func (c *Client) Close() error {
	err := c.closeConn()
	c.setState(drepo.StreamClosed)
	return err
}

var _ drepo.QuoteStream = (*Client)(nil)
