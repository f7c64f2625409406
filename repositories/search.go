//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/analysis/analyzer"
	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	contentField   = "content"
	roomField      = "room"
	createdAtField = "created_at"
	idField        = "_id"

	rebuildBatchSize = 500
)

var standardAnalyzer = analyzer.NewStandardAnalyzer()

// IMessageIndex is the full text index of message contents. Documents
// are keyed by message storage key, see MessageKey.
type IMessageIndex interface {
	Index(messages ...domain.Message) error
	SearchPaginated(ctx context.Context, terms string, roomID domain.RoomID, page int) ([]string, uint64, error)
}

type MessageIndex struct {
	writer   *bluge.Writer
	log      *slog.Logger
	pageSize int
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger, pageSize int) *MessageIndex {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &MessageIndex{writer: writer, log: log, pageSize: pageSize}
}

// Index adds or replaces the documents of the given messages in one batch.
func (i *MessageIndex) Index(messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	batch := bluge.NewBatch()
	for _, message := range messages {
		doc := bluge.NewDocument(MessageKey(message)).
			AddField(bluge.NewTextField(contentField, message.Content).WithAnalyzer(standardAnalyzer)).
			AddField(bluge.NewKeywordField(roomField, roomTerm(message.RoomID))).
			AddField(bluge.NewDateTimeField(createdAtField, message.CreatedAt).Sortable())
		batch.Update(doc.ID(), doc)
	}
	if err := i.writer.Batch(batch); err != nil {
		return errors.Storage(fmt.Errorf("index batch: %w", err))
	}
	return nil
}

// SearchPaginated returns the storage keys of the room's messages matching
// every term, newest first, and the total number of matches.
// page starts at 0 and is clamped to [0, domain.MaxSearchPage].
func (i *MessageIndex) SearchPaginated(ctx context.Context, terms string, roomID domain.RoomID, page int) ([]string, uint64, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, 0, errors.Storage(fmt.Errorf("index reader: %w", err))
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).
			SetField(contentField).
			SetAnalyzer(standardAnalyzer).
			SetOperator(bluge.MatchQueryOperatorAnd)).
		AddMust(bluge.NewTermQuery(roomTerm(roomID)).SetField(roomField))
	request := bluge.NewTopNSearch(i.pageSize, query).
		SetFrom(min(max(page, 0), domain.MaxSearchPage) * i.pageSize).
		SortBy([]string{"-" + createdAtField}).
		WithStandardAggregations()

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, errors.Storage(fmt.Errorf("index search: %w", err))
	}

	var keys []string
	match, err := matches.Next()
	for err == nil && match != nil {
		if visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				keys = append(keys, string(value))
				return false
			}
			return true
		}); visitErr != nil {
			return nil, 0, errors.Storage(visitErr)
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, 0, errors.Storage(fmt.Errorf("index iteration: %w", err))
	}

	total := matches.Aggregations().Count()
	i.log.Debug("Search done", "room_id", roomID, "terms", terms, "page", page, "total", total)
	return keys, total, nil
}

// Count returns the number of indexed messages.
func (i *MessageIndex) Count() (uint64, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = reader.Close()
	}()
	return reader.Count()
}

// RebuildIfEmpty indexes the whole message log when the index holds no
// document, which happens on first start or after the index was removed.
func (i *MessageIndex) RebuildIfEmpty(db *badger.DB) (int, error) {
	count, err := i.Count()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	var messages []domain.Message
	if err := db.View(func(txn *badger.Txn) error {
		return scan(txn, messagePrefix, func(val []byte) error {
			var record messageRecord
			if err := unmarshal(val, &record); err != nil {
				return err
			}
			messages = append(messages, toMessage(record))
			return nil
		})
	}); err != nil {
		return 0, err
	}
	for _, chunk := range lo.Chunk(messages, rebuildBatchSize) {
		if err := i.Index(chunk...); err != nil {
			return 0, err
		}
	}
	return len(messages), nil
}

func roomTerm(roomID domain.RoomID) string {
	return fmt.Sprintf("%019d", roomID)
}
