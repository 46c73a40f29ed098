// Package projection builds local timelines from what a client observes.
// Handles ordering and deduplication of history snapshots and live pushes.
// Does not talk to the network or render anything.
package projection

import (
	"slices"
	"sync"

	"traceforge/domain"
)

// Timeline is the view of one user. A message can arrive twice, once pushed
// live and once inside a history snapshot; it is kept once, ordered by Seq.
type Timeline struct {
	Owner    string
	mu       sync.RWMutex
	messages []domain.Message
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

// Reset replaces the timeline with a history snapshot.
func (t *Timeline) Reset(history []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = t.messages[:0]
	for _, m := range history {
		t.insert(m)
	}
}

// Consume adds one live message. It reports false for a duplicate.
func (t *Timeline) Consume(message domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(message)
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Timeline) insert(message domain.Message) bool {
	i, found := slices.BinarySearchFunc(t.messages, message.Seq, func(m domain.Message, seq uint64) int {
		switch {
		case m.Seq < seq:
			return -1
		case m.Seq > seq:
			return 1
		default:
			return 0
		}
	})
	if found {
		return false
	}
	t.messages = slices.Insert(t.messages, i, message)
	return true
}
