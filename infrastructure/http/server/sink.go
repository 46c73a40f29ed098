package server

import (
	"context"

	"traceforge/domain"
	"traceforge/session"
)

// connectionSink hands live messages to the writer goroutine of one
// WebSocket connection. The viewer follows the session, so a connection
// only starts receiving once it has logged in.
type connectionSink struct {
	session *session.Session
	events  chan domain.Message
}

func newConnectionSink(sess *session.Session, bufferSize int) *connectionSink {
	return &connectionSink{session: sess, events: make(chan domain.Message, bufferSize)}
}

func (s *connectionSink) Viewer() string {
	return s.session.Username()
}

// Consume is called by the fanout worker, bounded by its delivery timeout.
func (s *connectionSink) Consume(ctx context.Context, message domain.Message) error {
	select {
	case s.events <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
