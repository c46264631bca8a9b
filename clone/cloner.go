// Package clone orchestrates cloning content into other languages and
// keeping translation groups in sync. It coordinates the content store,
// fragment extraction, translation and injection for each item.
package clone

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/contentsync"
	"golang.org/x/sync/errgroup"
)

// Cloner clones content into other languages.
type Cloner struct {
	Store      contentsync.ContentStore
	Translator contentsync.Translator

	// Fragments translates page-builder fragments. When nil, fragments are
	// sent through Translator joined by contentsync.FragmentSeparator.
	Fragments contentsync.FragmentTranslator

	// Schema selects translatable settings. Defaults to contentsync.DefaultSchema.
	Schema *contentsync.Schema

	// Concurrency bounds how many items are translated at once.
	// Values below 2 process items one at a time.
	Concurrency int
}

// outcome is the result for one requested position.
type outcome struct {
	pair    *contentsync.ClonePair
	failure *contentsync.CloneFailure
}

// CloneBatch clones every source item and translates the clones into
// targetLanguage. The report holds exactly one outcome per entry in ids,
// duplicates included. An error is returned only for invalid input.
func (c *Cloner) CloneBatch(ctx context.Context, ids []int, targetLanguage string, progress ProgressFunc) (*contentsync.BatchCloneReport, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if targetLanguage == "" {
		return nil, contentsync.Errorf(contentsync.EINVALID, "target language required")
	}

	report := &contentsync.BatchCloneReport{
		Success: []contentsync.ClonePair{},
		Failed:  []contentsync.CloneFailure{},
	}
	if len(ids) == 0 {
		return report, nil
	}

	emit := serialize(progress)
	for _, id := range ids {
		emit(ProgressEvent{ID: id, State: StateRequested})
	}

	outcomes := c.cloneAll(ctx, ids, emit)

	process := func(i int) {
		pair := outcomes[i].pair
		if err := ctx.Err(); err != nil {
			outcomes[i] = failed(pair.OriginalID, contentsync.ReasonCanceled)
			emit(ProgressEvent{ID: pair.OriginalID, TargetID: pair.CloneID, State: StateFailed, Reason: contentsync.ReasonCanceled, Err: err})
			return
		}
		if err := c.processClone(ctx, *pair, targetLanguage, emit); err != nil {
			outcomes[i] = failed(pair.OriginalID, contentsync.ReasonTranslateFailed)
			emit(ProgressEvent{ID: pair.OriginalID, TargetID: pair.CloneID, State: StateFailed, Reason: contentsync.ReasonTranslateFailed, Err: err})
		}
	}

	if c.Concurrency < 2 {
		for i := range outcomes {
			if outcomes[i].pair != nil {
				process(i)
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.Concurrency)
		for i := range outcomes {
			if outcomes[i].pair == nil {
				continue
			}
			g.Go(func() error {
				process(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, o := range outcomes {
		if o.pair != nil {
			report.Success = append(report.Success, *o.pair)
		} else {
			report.Failed = append(report.Failed, *o.failure)
		}
	}
	return report, nil
}

func (c *Cloner) validate() error {
	if c.Store == nil {
		return contentsync.Errorf(contentsync.EINVALID, "content store required")
	}
	if c.Translator == nil {
		return contentsync.Errorf(contentsync.EINVALID, "translator required")
	}
	return nil
}

func failed(id int, reason string) outcome {
	return outcome{failure: &contentsync.CloneFailure{ID: id, Reason: reason}}
}

// cloneAll clones ids in one store call and maps the store's results back
// to request positions. IDs the store reports neither way count as failed.
func (c *Cloner) cloneAll(ctx context.Context, ids []int, emit ProgressFunc) []outcome {
	outcomes := make([]outcome, len(ids))

	result, err := c.Store.CloneContents(ctx, ids)
	if err != nil {
		for i, id := range ids {
			outcomes[i] = failed(id, contentsync.ReasonCloneFailed)
			emit(ProgressEvent{ID: id, State: StateFailed, Reason: contentsync.ReasonCloneFailed, Err: err})
		}
		return outcomes
	}

	clones := make(map[int][]int)
	for _, p := range result.Cloned {
		clones[p.OriginalID] = append(clones[p.OriginalID], p.CloneID)
	}
	reasons := make(map[int][]string)
	for _, f := range result.Failed {
		reasons[f.ID] = append(reasons[f.ID], f.Reason)
	}

	for i, id := range ids {
		if q := clones[id]; len(q) > 0 {
			clones[id] = q[1:]
			outcomes[i] = outcome{pair: &contentsync.ClonePair{OriginalID: id, CloneID: q[0]}}
			emit(ProgressEvent{ID: id, TargetID: q[0], State: StateCloned})
			continue
		}

		cause := fmt.Errorf("store returned no result for content %d", id)
		if q := reasons[id]; len(q) > 0 {
			reasons[id] = q[1:]
			cause = fmt.Errorf("store: %s", q[0])
		}
		outcomes[i] = failed(id, contentsync.ReasonCloneFailed)
		emit(ProgressEvent{ID: id, State: StateFailed, Reason: contentsync.ReasonCloneFailed, Err: cause})
	}
	return outcomes
}

// processClone translates the source of pair and writes the result to the
// clone as a draft. Panics in collaborators are turned into errors so one
// item can never take down the batch.
func (c *Cloner) processClone(ctx context.Context, pair contentsync.ClonePair, lang string, emit ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing content %d: %v", pair.OriginalID, r)
		}
	}()

	src, err := c.Store.FindContentByID(ctx, pair.OriginalID)
	if err != nil {
		return fmt.Errorf("find source: %w", err)
	}

	ev := ProgressEvent{ID: pair.OriginalID, TargetID: pair.CloneID}
	upd, err := c.translateContent(ctx, src, lang, &ev, emit)
	if err != nil {
		return err
	}

	status := contentsync.StatusDraft
	upd.Status = &status
	upd.Language = &lang
	upd.Meta[contentsync.MetaSourceID] = strconv.Itoa(src.ID)

	if err := c.Store.UpdateContent(ctx, pair.CloneID, upd); err != nil {
		return fmt.Errorf("update clone: %w", err)
	}

	ev.State = StateUpdated
	emit(ev)
	ev.State = StateSucceeded
	emit(ev)
	return nil
}

// translateContent translates src into lang and returns the update to apply
// to the target. Structured documents go through the fragment pipeline;
// plain and malformed bodies are translated as title and content blocks.
func (c *Cloner) translateContent(ctx context.Context, src *contentsync.Content, lang string, ev *ProgressEvent, emit ProgressFunc) (contentsync.ContentUpdate, error) {
	schema := c.schema()
	upd := contentsync.ContentUpdate{
		Meta: map[string]string{
			contentsync.MetaSourceHash:    HashContent(src),
			contentsync.MetaSchemaVersion: schema.Version,
		},
	}

	if src.HasDocument() {
		doc, err := contentsync.ParseDocument([]byte(src.Data))
		if err == nil {
			return c.translateDocument(ctx, src, doc, lang, upd, ev, emit)
		}
		ev.Malformed = true
	}

	ev.State = StateExtracted
	emit(*ev)

	blocks := map[string]string{
		contentsync.BlockTitle:   src.Title,
		contentsync.BlockContent: src.Body,
	}
	out, err := c.Translator.Translate(ctx, blocks, lang)
	if err != nil {
		return upd, fmt.Errorf("translate blocks: %w", err)
	}
	if err := contentsync.CheckBlocks(blocks, out); err != nil {
		return upd, err
	}

	ev.State = StateTranslated
	emit(*ev)
	ev.State = StateInjected
	emit(*ev)

	title, body := out[contentsync.BlockTitle], out[contentsync.BlockContent]
	upd.Title = &title
	upd.Body = &body
	return upd, nil
}

func (c *Cloner) translateDocument(ctx context.Context, src *contentsync.Content, doc *contentsync.Document, lang string, upd contentsync.ContentUpdate, ev *ProgressEvent, emit ProgressFunc) (contentsync.ContentUpdate, error) {
	schema := c.schema()

	fragments := contentsync.Collect(doc, schema)
	ev.Fragments = len(fragments)
	ev.State = StateExtracted
	emit(*ev)

	title, err := c.translateTitle(ctx, src.Title, lang)
	if err != nil {
		return upd, err
	}

	translated := []string{}
	if len(fragments) > 0 {
		translated, err = c.fragments().TranslateFragments(ctx, fragments, lang)
		if err != nil {
			return upd, fmt.Errorf("translate fragments: %w", err)
		}
	}
	ev.Translated = len(translated)
	ev.State = StateTranslated
	emit(*ev)

	out, _ := contentsync.Inject(doc, schema, translated)
	ev.State = StateInjected
	emit(*ev)

	data, err := out.MarshalJSON()
	if err != nil {
		return upd, fmt.Errorf("encode document: %w", err)
	}
	dataStr := string(data)
	upd.Title = &title
	upd.Data = &dataStr
	return upd, nil
}

// translateTitle translates a title on its own. Empty titles are not sent.
func (c *Cloner) translateTitle(ctx context.Context, title, lang string) (string, error) {
	if title == "" {
		return "", nil
	}
	blocks := map[string]string{contentsync.BlockTitle: title}
	out, err := c.Translator.Translate(ctx, blocks, lang)
	if err != nil {
		return "", fmt.Errorf("translate title: %w", err)
	}
	if err := contentsync.CheckBlocks(blocks, out); err != nil {
		return "", err
	}
	return out[contentsync.BlockTitle], nil
}

func (c *Cloner) schema() *contentsync.Schema {
	if c.Schema == nil {
		return contentsync.DefaultSchema()
	}
	return c.Schema
}

func (c *Cloner) fragments() contentsync.FragmentTranslator {
	if c.Fragments != nil {
		return c.Fragments
	}
	return &contentsync.SeparatorTranslator{Translator: c.Translator}
}

// HashContent returns a hex xxHash of the translatable parts of c.
// Sync compares it against the hash recorded on each sibling.
func HashContent(c *contentsync.Content) string {
	d := xxhash.New()
	_, _ = d.WriteString(c.Title)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(c.Body)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(c.Data)
	return fmt.Sprintf("%016x", d.Sum64())
}
