// Package chatclient is a small reference client for the project chat
// websocket. It is what the test suite and ad-hoc tooling use to talk to a
// running server.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/brightdesk/agency-api/models"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// ErrClosed is returned once the client has been closed
var ErrClosed = errors.New("chatclient: closed")

// Client is a single chat connection. Frames read from the server are
// delivered in order on Frames(); Send is safe for concurrent use.
type Client struct {
	conn *websocket.Conn

	frames chan []byte
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// Dial connects to a chat websocket endpoint. A bearer token is attached
// when token is non-empty.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	c := &Client{
		conn:   conn,
		frames: make(chan []byte, 64),
	}

	group, _ := errgroup.WithContext(context.Background())
	c.group = group
	group.Go(c.readLoop)

	return c, nil
}

func (c *Client) readLoop() error {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.frames <- data
	}
}

// Send publishes a chat message to the connected project
func (c *Client) Send(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	frame, err := json.Marshal(models.ChatFrame{Type: "message", Content: content})
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Frames exposes the raw inbound frame stream; closed when the connection
// dies
func (c *Client) Frames() <-chan []byte {
	return c.frames
}

// NextMessage blocks until the next broadcast chat message arrives, skipping
// history and error frames
func (c *Client) NextMessage(ctx context.Context) (models.ChatMessage, error) {
	for {
		select {
		case data, ok := <-c.frames:
			if !ok {
				return models.ChatMessage{}, ErrClosed
			}
			var frame models.MessageFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			if frame.Type != "message" {
				continue
			}
			return frame.Message, nil
		case <-ctx.Done():
			return models.ChatMessage{}, ctx.Err()
		}
	}
}

// History blocks until the initial history frame arrives
func (c *Client) History(ctx context.Context) ([]models.ChatMessage, error) {
	for {
		select {
		case data, ok := <-c.frames:
			if !ok {
				return nil, ErrClosed
			}
			var frame models.HistoryFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			if frame.Type != "history" {
				continue
			}
			return frame.Messages, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close tears the connection down and waits for the read loop to stop
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()

	err := c.conn.Close()
	_ = c.group.Wait()
	return err
}
