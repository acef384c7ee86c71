package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcomartin123/op/internal/observability"
)

// ClientConfig configures websocket client behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultClientConfig returns default websocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client implements QuoteClient using gorilla/websocket.
//
// The feed protocol is one JSON frame per message: the client sends
// {"op":"subscribe","symbol":"XYZ"} and the server pushes quote frames
// {"symbol":"XYZ","price":35.2,"timestampMs":...} for every subscribed
// symbol. After a reconnect the client resubscribes to all active
// symbols.
type Client struct {
	endpoint string
	config   ClientConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps symbol to quote channel
	subs   map[string]chan Quote
	subsMu sync.RWMutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewClient creates a new quote client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, config *ClientConfig) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[string]chan Quote),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the websocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe subscribes to quotes for a symbol. Repeated calls for the
// same symbol return the existing channel.
func (c *Client) Subscribe(ctx context.Context, symbol string) (<-chan Quote, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	c.subsMu.Lock()
	if ch, ok := c.subs[symbol]; ok {
		c.subsMu.Unlock()
		return ch, nil
	}
	// Large buffer absorbs bursts; blocking send in the dispatcher
	// ensures no quote loss.
	ch := make(chan Quote, 1024)
	c.subs[symbol] = ch
	c.subsMu.Unlock()

	if err := c.writeSubscribe(ctx, symbol); err != nil {
		c.subsMu.Lock()
		delete(c.subs, symbol)
		c.subsMu.Unlock()
		close(ch)
		return nil, err
	}

	return ch, nil
}

// writeSubscribe sends a subscribe frame for the symbol.
func (c *Client) writeSubscribe(ctx context.Context, symbol string) error {
	req := subscribeRequest{Op: "subscribe", Symbol: symbol}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the websocket connection and all quote channels.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for symbol, ch := range c.subs {
		close(ch)
		delete(c.subs, symbol)
	}
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads quote frames and dispatches them to subscribers.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error, reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
	observability.RecordFeedReset()

	c.resubscribeAll()
}

// resubscribeAll resends subscribe frames for all active symbols.
func (c *Client) resubscribeAll() {
	c.subsMu.RLock()
	symbols := make([]string, 0, len(c.subs))
	for symbol := range c.subs {
		symbols = append(symbols, symbol)
	}
	c.subsMu.RUnlock()

	for _, symbol := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.writeSubscribe(ctx, symbol)
		cancel()
		if err != nil {
			// Failed to resubscribe, the next read error retries
			return
		}
	}
}

// handleMessage parses a quote frame and dispatches it.
func (c *Client) handleMessage(message []byte) {
	var q Quote
	if err := json.Unmarshal(message, &q); err != nil || q.Symbol == "" {
		return
	}

	c.subsMu.RLock()
	ch, ok := c.subs[q.Symbol]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop quotes
		select {
		case ch <- q:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// Dead connections surface in the read loop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

type subscribeRequest struct {
	Op     string `json:"op"`
	Symbol string `json:"symbol"`
}
