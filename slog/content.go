package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/contentsync"
)

// Ensure LoggingContentStore implements contentsync.ContentStore.
var _ contentsync.ContentStore = (*LoggingContentStore)(nil)

// LoggingContentStore wraps a ContentStore with logging. Bulk clones are
// logged at info level, everything else at debug level.
type LoggingContentStore struct {
	next   contentsync.ContentStore
	logger *slog.Logger
}

// NewLoggingContentStore creates a new LoggingContentStore.
func NewLoggingContentStore(next contentsync.ContentStore, logger *slog.Logger) *LoggingContentStore {
	return &LoggingContentStore{next: next, logger: logger}
}

// CloneContents delegates to the wrapped store and logs the outcome counts.
func (s *LoggingContentStore) CloneContents(ctx context.Context, ids []int) (res *contentsync.CloneContentsResult, err error) {
	defer func(begin time.Time) {
		var cloned, failed int
		if res != nil {
			cloned, failed = len(res.Cloned), len(res.Failed)
		}
		s.logger.Info("clone contents",
			"requested", len(ids),
			"cloned", cloned,
			"failed", failed,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CloneContents(ctx, ids)
}

// FindContentByID delegates to the wrapped store.
func (s *LoggingContentStore) FindContentByID(ctx context.Context, id int) (c *contentsync.Content, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find content", "id", id, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.FindContentByID(ctx, id)
}

// FindContents delegates to the wrapped store.
func (s *LoggingContentStore) FindContents(ctx context.Context, filter contentsync.ContentFilter) (contents []*contentsync.Content, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find contents", "count", len(contents), "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.FindContents(ctx, filter)
}

// UpdateContent delegates to the wrapped store.
func (s *LoggingContentStore) UpdateContent(ctx context.Context, id int, upd contentsync.ContentUpdate) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("update content", "id", id, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.UpdateContent(ctx, id, upd)
}
