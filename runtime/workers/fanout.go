package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"traceforge/contract"
	"traceforge/domain"
)

// FanoutWorker pushes each appended message to the live connections
// allowed to see it.
//
// Delivery is best effort: a slow or broken sink is abandoned after
// sinkTimeout and never holds up the others. The message log stays the
// source of truth.
type FanoutWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      <-chan domain.Message
	sinkTimeout time.Duration
}

func NewFanoutWorker(log *slog.Logger, registry contract.IRegistry,
	events <-chan domain.Message, sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{log: log, registry: registry, events: events, sinkTimeout: sinkTimeout}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case m, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.Fanout(ctx, m)
		}
	}
}

// Fanout returns once every eligible sink consumed the message or timed out.
func (w *FanoutWorker) Fanout(ctx context.Context, message domain.Message) {
	var wg sync.WaitGroup
	for _, sink := range w.registry.Sinks() {
		if !domain.VisibleTo(sink.Viewer(), message) {
			continue
		}
		wg.Add(1)
		go func(s contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := s.Consume(sinkCtx, message); err != nil {
				w.log.Debug("Sink delivery failed", "seq", message.Seq, "viewer", s.Viewer(), "error", err)
			}
		}(sink)
	}
	wg.Wait()
}
