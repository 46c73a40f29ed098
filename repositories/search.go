package repositories

import (
	"context"
	"fmt"
	"strconv"

	"traceforge/domain"
	"traceforge/errors"

	"github.com/blugelabs/bluge"
)

const (
	bodyField   = "body"
	authorField = "author"
	idField     = "_id"
)

// SearchIndex is a full-text index over message bodies. Document IDs are the
// log positions, so hits are hydrated from the message log.
type SearchIndex struct {
	writer *bluge.Writer
}

func NewSearchIndex(writer *bluge.Writer) *SearchIndex {
	return &SearchIndex{writer: writer}
}

// OpenSearchIndex opens (or creates) an on-disk index at path.
func OpenSearchIndex(path string) (*SearchIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open search index: %v", errors.ErrStorage, err)
	}
	return NewSearchIndex(writer), nil
}

func (s *SearchIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(strconv.FormatUint(message.Seq, 10)).
		AddField(bluge.NewTextField(bodyField, message.Body)).
		AddField(bluge.NewKeywordField(authorField, message.Author).StoreValue())
	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: index message %d: %v", errors.ErrStorage, message.Seq, err)
	}
	return nil
}

// Search returns the log positions of the best matches for text, best first.
func (s *SearchIndex) Search(ctx context.Context, text string, limit int) ([]uint64, error) {
	if text == "" || limit <= 0 {
		return nil, nil
	}
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: search reader: %v", errors.ErrStorage, err)
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(text).SetField(bodyField)
	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", errors.ErrStorage, err)
	}

	var positions []uint64
	match, err := it.Next()
	for err == nil && match != nil {
		var seq uint64
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				seq, _ = strconv.ParseUint(string(value), 10, 64)
				return false
			}
			return true
		})
		if visitErr != nil {
			return nil, fmt.Errorf("%w: search hit: %v", errors.ErrStorage, visitErr)
		}
		if seq != 0 {
			positions = append(positions, seq)
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: search iterate: %v", errors.ErrStorage, err)
	}
	return positions, nil
}

func (s *SearchIndex) Close() error {
	return s.writer.Close()
}
