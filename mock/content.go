package mock

import (
	"context"

	"github.com/fwojciec/contentsync"
)

var _ contentsync.ContentStore = (*ContentStore)(nil)

// ContentStore is a mock implementation of contentsync.ContentStore.
type ContentStore struct {
	CloneContentsFn   func(ctx context.Context, ids []int) (*contentsync.CloneContentsResult, error)
	FindContentByIDFn func(ctx context.Context, id int) (*contentsync.Content, error)
	FindContentsFn    func(ctx context.Context, filter contentsync.ContentFilter) ([]*contentsync.Content, error)
	UpdateContentFn   func(ctx context.Context, id int, upd contentsync.ContentUpdate) error
}

func (s *ContentStore) CloneContents(ctx context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
	return s.CloneContentsFn(ctx, ids)
}

func (s *ContentStore) FindContentByID(ctx context.Context, id int) (*contentsync.Content, error) {
	return s.FindContentByIDFn(ctx, id)
}

func (s *ContentStore) FindContents(ctx context.Context, filter contentsync.ContentFilter) ([]*contentsync.Content, error) {
	return s.FindContentsFn(ctx, filter)
}

func (s *ContentStore) UpdateContent(ctx context.Context, id int, upd contentsync.ContentUpdate) error {
	return s.UpdateContentFn(ctx, id, upd)
}
