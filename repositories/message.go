//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"traceforge/domain"
	"traceforge/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix      = "msg:"
	messageSequenceKey = "seq:msg"
	sequenceBandwidth  = 100
	// lastMessageKey sorts after every "msg:{20 digits}" key.
	lastMessageKey = messagePrefix + "99999999999999999999"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Recent(limit int) ([]domain.Message, error)
	Get(seq uint64) (domain.Message, error)
}

// MessageRepository is the append-only chat log.
//
// Keys are "msg:{seq}" with a 20-digit zero padded sequence so the
// lexicographic order of Badger keys is the insertion order. Appends are
// serialized: a sequence number is committed before the next one is allocated,
// so a reader never observes message N without every message before it.
// Readers use snapshot transactions and never wait for writers.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
	mu       sync.Mutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: message sequence: %v", errors.ErrStorage, err)
	}
	return &MessageRepository{db: db, log: log, sequence: seq}, nil
}

// NewMessageReader opens the log without leasing a sequence range, which
// works on a read-only database. Append fails on a reader.
func NewMessageReader(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// Append stores message at the next position of the log. ID and CreatedAt are
// filled in when missing. No validation happens at this layer.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sequence == nil {
		return domain.Message{}, fmt.Errorf("%w: message log opened read-only", errors.ErrStorage)
	}
	next, err := m.sequence.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: next sequence: %v", errors.ErrStorage, err)
	}
	// Sequence starts at 0, positions start at 1 so a zero Seq means "not stored".
	message.Seq = next + 1

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Seq), marshalMessage(message))
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append message: %v", errors.ErrStorage, err)
	}
	return message, nil
}

// Recent returns up to limit most recent messages, oldest first.
func (m *MessageRepository) Recent(limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, max(limit, 0))
	if limit <= 0 {
		return messages, nil
	}

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchSize = min(limit, options.PrefetchSize)
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek([]byte(lastMessageKey)); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				message, err := unmarshalMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recent messages: %v", errors.ErrStorage, err)
	}

	slices.Reverse(messages)
	return messages, nil
}

// Get returns the message stored at position seq.
func (m *MessageRepository) Get(seq uint64) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			message, err = unmarshalMessage(val)
			return err
		})
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: get message %d: %v", errors.ErrStorage, seq, err)
	}
	return message, nil
}

// Count walks the keys only; values are never loaded.
func (m *MessageRepository) Count() (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count messages: %v", errors.ErrStorage, err)
	}
	return count, nil
}

// Close returns the unused part of the leased sequence range.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sequence == nil {
		return nil
	}
	return m.sequence.Release()
}

func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, seq))
}
