package runtime

import (
	"log/slog"

	"traceforge/domain"
)

// Hub is the publish side of live delivery. The FanoutWorker drains Events.
type Hub struct {
	events chan domain.Message
	log    *slog.Logger
}

func NewHub(bufferSize int, log *slog.Logger) *Hub {
	return &Hub{events: make(chan domain.Message, bufferSize), log: log}
}

// Publish never blocks the writer. A dropped message is still in the log
// and reaches the client with its next history refresh.
func (h *Hub) Publish(message domain.Message) {
	select {
	case h.events <- message:
	default:
		h.log.Warn("Live delivery buffer full, message dropped", "seq", message.Seq)
	}
}

func (h *Hub) Events() <-chan domain.Message {
	return h.events
}
