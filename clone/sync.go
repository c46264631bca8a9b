package clone

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fwojciec/contentsync"
)

// SyncOptions configures SyncGroup.
type SyncOptions struct {
	// Force re-translates siblings even when the source is unchanged.
	Force bool
}

// SyncGroup pushes the current source content to every translated sibling in
// its translation group. Siblings whose recorded source hash matches the
// current source are skipped unless opts.Force is set. Sibling failures are
// collected in the report; an error is returned only when the source or
// group cannot be loaded.
func (c *Cloner) SyncGroup(ctx context.Context, sourceID int, opts SyncOptions, progress ProgressFunc) (*contentsync.SyncReport, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	src, err := c.Store.FindContentByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if src.TranslationGroup == "" {
		return nil, contentsync.Errorf(contentsync.EINVALID, "content %d has no translation group", sourceID)
	}

	group := src.TranslationGroup
	siblings, err := c.Store.FindContents(ctx, contentsync.ContentFilter{TranslationGroup: &group})
	if err != nil {
		return nil, fmt.Errorf("find translation group: %w", err)
	}

	report := &contentsync.SyncReport{
		SourceID: sourceID,
		Synced:   []int{},
		Skipped:  []int{},
		Failed:   []contentsync.CloneFailure{},
	}
	emit := serialize(progress)
	hash := HashContent(src)

	for _, sib := range siblings {
		if sib.ID == src.ID {
			continue
		}
		if sib.Language == "" || sib.Language == src.Language {
			report.Skipped = append(report.Skipped, sib.ID)
			continue
		}
		if !opts.Force && sib.Meta[contentsync.MetaSourceHash] == hash {
			report.Skipped = append(report.Skipped, sib.ID)
			continue
		}

		emit(ProgressEvent{ID: src.ID, TargetID: sib.ID, State: StateRequested})
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, contentsync.CloneFailure{ID: sib.ID, Reason: contentsync.ReasonCanceled})
			emit(ProgressEvent{ID: src.ID, TargetID: sib.ID, State: StateFailed, Reason: contentsync.ReasonCanceled, Err: err})
			continue
		}
		if err := c.syncSibling(ctx, src, sib, emit); err != nil {
			report.Failed = append(report.Failed, contentsync.CloneFailure{ID: sib.ID, Reason: contentsync.ReasonSyncFailed})
			emit(ProgressEvent{ID: src.ID, TargetID: sib.ID, State: StateFailed, Reason: contentsync.ReasonSyncFailed, Err: err})
			continue
		}
		report.Synced = append(report.Synced, sib.ID)
	}
	return report, nil
}

// syncSibling translates src into the sibling's language and overwrites the
// sibling's text. Status and language of the sibling are left as they are.
func (c *Cloner) syncSibling(ctx context.Context, src, sib *contentsync.Content, emit ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic syncing content %d: %v", sib.ID, r)
		}
	}()

	ev := ProgressEvent{ID: src.ID, TargetID: sib.ID}
	upd, err := c.translateContent(ctx, src, sib.Language, &ev, emit)
	if err != nil {
		return err
	}
	upd.Meta[contentsync.MetaSourceID] = strconv.Itoa(src.ID)

	if err := c.Store.UpdateContent(ctx, sib.ID, upd); err != nil {
		return fmt.Errorf("update sibling: %w", err)
	}

	ev.State = StateUpdated
	emit(ev)
	ev.State = StateSucceeded
	emit(ev)
	return nil
}
