package runtime

import (
	"context"
	"log/slog"
	"testing"

	"traceforge/domain"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	viewer string
}

func (s Sink) Viewer() string { return s.viewer }

func (s Sink) Consume(ctx context.Context, m domain.Message) error {
	return nil
}

func TestRegistry_Subscribe_One_Participant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	sink := Sink{viewer: "alice"}

	// Given no user is connected
	req.Empty(registry.Sinks())

	// When a connection subscribes
	registry.Subscribe(connectionID, sink)

	// Then
	req.Equal(1, registry.Len())
	req.Contains(registry.Sinks(), sink)
}

func TestRegistry_Subscribe_Multiple_Participants(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink1 := Sink{viewer: "alice"}
	sink2 := Sink{viewer: "bob"}

	registry.Subscribe(uuid.NewString(), sink1)
	registry.Subscribe(uuid.NewString(), sink2)

	req.Len(registry.Sinks(), 2)
	req.Contains(registry.Sinks(), sink1)
	req.Contains(registry.Sinks(), sink2)
}

func TestRegistry_UnSubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID1 := uuid.NewString()
	connectionID2 := uuid.NewString()
	sink2 := Sink{viewer: "bob"}

	registry.Subscribe(connectionID1, Sink{viewer: "alice"})
	registry.Subscribe(connectionID2, sink2)

	// When a connection leaves
	registry.Unsubscribe(connectionID1)
	// Unknown connections are ignored
	registry.Unsubscribe("unknown")

	// Then only one participant left
	req.Equal(1, registry.Len())
	req.Equal([]Sink{sink2}, toSinks(registry))
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	req := require.New(t)
	hub := NewHub(1, logs.GetLoggerFromLevel(slog.LevelDebug))

	hub.Publish(domain.Message{Seq: 1})
	// Buffer full: dropped instead of blocking
	hub.Publish(domain.Message{Seq: 2})

	got := <-hub.Events()
	req.Equal(uint64(1), got.Seq)
	select {
	case m := <-hub.Events():
		req.Failf("unexpected message", "seq=%d", m.Seq)
	default:
	}
}

func toSinks(r *Registry) []Sink {
	var out []Sink
	for _, s := range r.Sinks() {
		out = append(out, s.(Sink))
	}
	return out
}
