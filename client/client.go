// Package client speaks the /ws protocol of chatd.
// It keeps a local timeline merged from history snapshots and live pushes.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"traceforge/domain"
	"traceforge/errors"
	"traceforge/infrastructure/http/server"
	"traceforge/projection"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const writeWait = 10 * time.Second

// Client is one WebSocket connection. It is not safe for concurrent use:
// every call reads frames from the same connection.
type Client struct {
	conn     *websocket.Conn
	log      *slog.Logger
	timeline *projection.Timeline
	username string
	token    string
}

func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, log: log, timeline: projection.NewTimeline("")}, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, server.Frame{Type: server.FrameLogin, Username: username, Password: password})
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, server.Frame{Type: server.FrameRegister, Username: username, Password: password})
}

// Send posts a message. The server answers with a fresh history snapshot,
// which replaces the local timeline.
func (c *Client) Send(ctx context.Context, body string) error {
	_, err := c.roundTrip(ctx, server.Frame{Type: server.FrameSend, Body: body}, server.FrameHistory)
	return err
}

func (c *Client) History(ctx context.Context) ([]domain.Message, error) {
	if _, err := c.roundTrip(ctx, server.Frame{Type: server.FrameHistory}, server.FrameHistory); err != nil {
		return nil, err
	}
	return c.timeline.Messages(), nil
}

// Search results are not merged into the timeline.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Message, error) {
	reply, err := c.roundTrip(ctx, server.Frame{Type: server.FrameSearch, Query: query}, server.FrameSearch)
	if err != nil {
		return nil, err
	}
	return toMessages(reply.Messages), nil
}

// Next blocks until the next live message not already in the timeline.
func (c *Client) Next(ctx context.Context) (domain.Message, error) {
	for {
		frame, err := c.read(ctx)
		if err != nil {
			return domain.Message{}, err
		}
		if frame.Type != server.FrameMessage || frame.Message == nil {
			if err := c.apply(frame); err != nil {
				c.log.Debug("Ignoring frame", "type", frame.Type, "error", err)
			}
			continue
		}
		message := toMessage(*frame.Message)
		if c.timeline.Consume(message) {
			return message, nil
		}
	}
}

func (c *Client) Messages() []domain.Message { return c.timeline.Messages() }
func (c *Client) Username() string           { return c.username }
func (c *Client) Token() string              { return c.token }

func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) authenticate(ctx context.Context, frame server.Frame) error {
	reply, err := c.roundTrip(ctx, frame, server.FrameAuth)
	if err != nil {
		return err
	}
	c.username, c.token = reply.Username, reply.Token
	c.timeline = projection.NewTimeline(reply.Username)
	// a history snapshot always follows the auth frame
	_, err = c.await(ctx, server.FrameHistory)
	return err
}

func (c *Client) roundTrip(ctx context.Context, frame server.Frame, want string) (server.Frame, error) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		return server.Frame{}, fmt.Errorf("write %s frame: %w", frame.Type, err)
	}
	return c.await(ctx, want)
}

// await reads until a frame of type want arrives. Live messages received
// meanwhile are merged into the timeline.
func (c *Client) await(ctx context.Context, want string) (server.Frame, error) {
	for {
		frame, err := c.read(ctx)
		if err != nil {
			return server.Frame{}, err
		}
		if err := c.apply(frame); err != nil {
			return server.Frame{}, err
		}
		if frame.Type == want {
			return frame, nil
		}
	}
}

func (c *Client) apply(frame server.Frame) error {
	switch frame.Type {
	case server.FrameError:
		return fmt.Errorf("%w: %s", errors.ErrRejected, frame.Error)
	case server.FrameHistory:
		c.timeline.Reset(toMessages(frame.Messages))
	case server.FrameMessage:
		if frame.Message != nil {
			c.timeline.Consume(toMessage(*frame.Message))
		}
	}
	return nil
}

// read honours ctx by expiring the read deadline once ctx is done. A cancelled read leaves the
// connection unusable, as with any gorilla read timeout.
func (c *Client) read(ctx context.Context) (server.Frame, error) {
	_ = c.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var frame server.Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		if ctx.Err() != nil {
			return server.Frame{}, ctx.Err()
		}
		return server.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return frame, nil
}

func toMessage(r server.MessageResponse) domain.Message {
	id, _ := uuid.Parse(r.ID)
	return domain.Message{
		Seq:       r.Seq,
		ID:        id,
		Author:    r.Author,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}

func toMessages(responses []server.MessageResponse) []domain.Message {
	return lo.Map(responses, func(item server.MessageResponse, _ int) domain.Message {
		return toMessage(item)
	})
}
