//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"traceforge/domain"
	"traceforge/errors"
	"traceforge/moderation"
	"traceforge/repositories"
)

// DefaultHistoryWindow is the recency window applied before visibility filtering.
const DefaultHistoryWindow = 50

type IChatService interface {
	// Send reports sent=false when the trimmed body is empty.
	Send(ctx context.Context, author, body string) (message domain.Message, sent bool, err error)
	History(viewer string) ([]domain.Message, error)
	Search(ctx context.Context, viewer, text string) ([]domain.Message, error)
}

// Indexer is the full-text index kept next to the log.
type Indexer interface {
	Index(message domain.Message) error
	Search(ctx context.Context, text string, limit int) ([]uint64, error)
}

// Publisher delivers appended messages to live connections.
type Publisher interface {
	Publish(message domain.Message)
}

type ChatService struct {
	messages  repositories.IMessageRepository
	moderator moderation.Moderator
	index     Indexer
	publisher Publisher
	window    int
	log       *slog.Logger
	now       func() time.Time
}

func NewChatService(messages repositories.IMessageRepository, moderator moderation.Moderator,
	index Indexer, publisher Publisher, window int, log *slog.Logger) *ChatService {
	return &ChatService{
		messages:  messages,
		moderator: moderator,
		index:     index,
		publisher: publisher,
		window:    window,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) Send(_ context.Context, author, body string) (domain.Message, bool, error) {
	if author == "" {
		return domain.Message{}, false, errors.ErrNotAuthenticated
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, false, nil
	}

	filtered, words := s.moderator.Censor(body)
	if len(words) > 0 {
		s.log.Info("Message censored", "username", author, "words", len(words))
	}

	stored, err := s.messages.Append(domain.Message{
		Author:    author,
		Body:      filtered,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.log.Error("Append failed", "username", author, "error", err)
		return domain.Message{}, false, err
	}

	// The log is the source of truth; the index can be rebuilt from it.
	if s.index != nil {
		if err := s.index.Index(stored); err != nil {
			s.log.Warn("Indexing failed", "message_id", stored.ID, "error", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(stored)
	}
	return stored, true, nil
}

// History returns the recency window of the log filtered for viewer.
// The window applies to the raw log, so viewer may get fewer messages.
func (s *ChatService) History(viewer string) ([]domain.Message, error) {
	if viewer == "" {
		return nil, errors.ErrNotAuthenticated
	}
	recent, err := s.messages.Recent(s.window)
	if err != nil {
		return nil, err
	}
	return domain.FilterVisible(viewer, recent), nil
}

// Search looks the whole log up, not only the recency window, and hides
// private messages viewer is not part of.
func (s *ChatService) Search(ctx context.Context, viewer, text string) ([]domain.Message, error) {
	if viewer == "" {
		return nil, errors.ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty search query", errors.ErrInvalidInput)
	}
	if s.index == nil {
		return []domain.Message{}, nil
	}

	positions, err := s.index.Search(ctx, text, s.window)
	if err != nil {
		return nil, err
	}
	found := make([]domain.Message, 0, len(positions))
	for _, seq := range positions {
		m, err := s.messages.Get(seq)
		if err != nil {
			return nil, err
		}
		found = append(found, m)
	}
	return domain.FilterVisible(viewer, found), nil
}
