package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

const defaultHistoryLimit = 12

// HistoryEntry pairs a closed record with its frozen close-time summary.
type HistoryEntry struct {
	Record    *models.ExecutionRecord
	Completed *models.CompletedExecution
}

// HistoryService is the read path over closed months. Summaries come from
// the frozen CompletedExecution rows, never recomputed from contributions,
// so later contribution edits don't rewrite history.
type HistoryService struct {
	store storage.HistoryStore
	log   *slog.Logger
}

// NewHistoryService wires a history service.
func NewHistoryService(store storage.HistoryStore, log *slog.Logger) *HistoryService {
	if log == nil {
		log = slog.Default()
	}
	return &HistoryService{store: store, log: log}
}

// Recent lists the most recently closed months, newest first. Non-positive
// limits select a default of 12.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	records, err := s.store.ClosedRecords(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		completed, err := s.store.CompletedExecutionForRecord(ctx, record.ID)
		if errors.Is(err, storage.ErrNotFound) {
			// A record can be observed between the close and the summary
			// only by bypassing the store's transactional close; log and
			// keep the listing usable.
			s.log.Warn("closed record has no completion summary", "record", record.ID)
			entries = append(entries, HistoryEntry{Record: record})
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, HistoryEntry{Record: record, Completed: completed})
	}
	return entries, nil
}
