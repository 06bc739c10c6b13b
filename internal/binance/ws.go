package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtrask/stinkbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler receives each decoded stream event.
type StreamHandler func(Event)

// StreamClient reads one Binance combined-stream WebSocket connection and
// dispatches decoded events to a handler. Reconnection policy lives in the
// feed layer; a StreamClient covers exactly one connection.
type StreamClient struct {
	url     string
	handler StreamHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// StreamURL builds a combined-stream URL for the given stream names, e.g.
// ["btcusdt@depth@100ms", "btcusdt@aggTrade"].
func StreamURL(wsBase string, streams []string) string {
	return strings.TrimRight(wsBase, "/") + "/stream?streams=" + strings.Join(streams, "/")
}

// NewStreamClient creates a client for the given combined-stream URL.
func NewStreamClient(url string, handler StreamHandler) *StreamClient {
	return &StreamClient{url: url, handler: handler}
}

// Connect dials the stream endpoint.
func (c *StreamClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("binance/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("binance/ws: connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	// Binance pings its clients; extend the deadline on those too. The
	// default handler already answers with a pong.
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	c.conn = conn
	return nil
}

// Listen blocks reading the connection until it fails or ctx is cancelled,
// dispatching every decodable message to the handler. Undecodable messages
// are dropped; EventUnknown is forwarded like any other event.
func (c *StreamClient) Listen(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("binance/ws: not connected")
	}

	pingDone := make(chan struct{})
	go c.pingLoop(conn, pingDone)
	defer close(pingDone)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-pingDone:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("binance/ws: read: %w", err)
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			// Malformed frame; skip it rather than kill the stream.
			continue
		}
		if c.handler != nil {
			c.handler(ev)
		}
	}
}

func (c *StreamClient) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Close shuts the connection down. Safe to call multiple times.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
