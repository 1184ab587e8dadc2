// Package stream pushes history state and operations to an editor UI over
// a WebSocket, so undo and redo controls can follow the stacks.
package stream

import (
	"fmt"
	"log/slog"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/history"
)

// Client publishes history messages. Publishing never blocks; messages are
// dropped when the send queue is full.
type Client struct {
	conn  *connection
	cfg   config.StreamConfig
	hello HelloPayload
}

// New creates a client. A nil logger uses slog.Default().
func New(cfg config.StreamConfig, hello HelloPayload, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:  newConnection(logger.With("component", "stream")),
		cfg:   cfg,
		hello: hello,
	}
}

// Connect dials the server and waits until it acknowledges hello.
func (c *Client) Connect() error {
	data, err := marshalEnvelope(TypeHello, c.hello)
	if err != nil {
		return fmt.Errorf("marshal hello: %w", err)
	}
	if err := c.conn.dial(c.cfg.URL, c.cfg.Secret); err != nil {
		return err
	}

	c.conn.mu.Lock()
	c.conn.hello = data
	c.conn.mu.Unlock()

	return c.conn.sendAndWait(data, TypeHello, ackTimeout)
}

// Close disconnects from the server.
func (c *Client) Close() error {
	return c.conn.close()
}

// PublishState sends the current undo/redo affordances.
func (c *Client) PublishState(st history.State) {
	data, err := marshalEnvelope(TypeHistoryState, st)
	if err != nil {
		c.conn.logger.Error("Failed to marshal history state", "error", err)
		return
	}
	c.conn.mu.Lock()
	c.conn.lastState = data
	c.conn.mu.Unlock()
	c.conn.send(data)
}

// Audit sends one history operation.
func (c *Client) Audit(op string, res history.Result, _ history.State) {
	data, err := marshalEnvelope(TypeHistoryOp, NewOpPayload(op, res))
	if err != nil {
		c.conn.logger.Error("Failed to marshal history op", "op", op, "error", err)
		return
	}
	c.conn.send(data)
}

// Observer adapts the client to history.Subscribe.
func (c *Client) Observer() history.Observer {
	return c.PublishState
}
