package clone_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	"github.com/fwojciec/contentsync/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory content store built on mock.ContentStore.
type memStore struct {
	*mock.ContentStore

	mu       sync.Mutex
	contents map[int]*contentsync.Content
	updates  map[int]contentsync.ContentUpdate
	nextID   int
}

func newMemStore(contents ...*contentsync.Content) *memStore {
	s := &memStore{
		contents: make(map[int]*contentsync.Content),
		updates:  make(map[int]contentsync.ContentUpdate),
		nextID:   100,
	}
	for _, c := range contents {
		s.contents[c.ID] = c
	}
	s.ContentStore = &mock.ContentStore{
		CloneContentsFn: func(_ context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			res := &contentsync.CloneContentsResult{}
			for _, id := range ids {
				src, ok := s.contents[id]
				if !ok {
					res.Failed = append(res.Failed, contentsync.CloneFailure{ID: id, Reason: "content not found"})
					continue
				}
				s.nextID++
				cp := *src
				cp.ID = s.nextID
				s.contents[cp.ID] = &cp
				res.Cloned = append(res.Cloned, contentsync.ClonePair{OriginalID: id, CloneID: cp.ID})
			}
			return res, nil
		},
		FindContentByIDFn: func(_ context.Context, id int) (*contentsync.Content, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			c, ok := s.contents[id]
			if !ok {
				return nil, contentsync.Errorf(contentsync.ENOTFOUND, "content %d not found", id)
			}
			cp := *c
			return &cp, nil
		},
		FindContentsFn: func(_ context.Context, filter contentsync.ContentFilter) ([]*contentsync.Content, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var out []*contentsync.Content
			for id := 1; id <= s.nextID; id++ {
				c, ok := s.contents[id]
				if !ok {
					continue
				}
				if filter.TranslationGroup != nil && c.TranslationGroup != *filter.TranslationGroup {
					continue
				}
				cp := *c
				out = append(out, &cp)
			}
			return out, nil
		},
		UpdateContentFn: func(_ context.Context, id int, upd contentsync.ContentUpdate) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.contents[id]; !ok {
				return contentsync.Errorf(contentsync.ENOTFOUND, "content %d not found", id)
			}
			s.updates[id] = upd
			return nil
		},
	}
	return s
}

func (s *memStore) update(id int) (contentsync.ContentUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upd, ok := s.updates[id]
	return upd, ok
}

// prefixTranslator prepends "<lang>:" to every block.
func prefixTranslator() *mock.Translator {
	return &mock.Translator{
		TranslateFn: func(_ context.Context, blocks map[string]string, lang string) (map[string]string, error) {
			out := make(map[string]string, len(blocks))
			for k, v := range blocks {
				out[k] = lang + ":" + v
			}
			return out, nil
		},
	}
}

// prefixFragments prepends "<lang>:" to every fragment.
func prefixFragments() *mock.FragmentTranslator {
	return &mock.FragmentTranslator{
		TranslateFragmentsFn: func(_ context.Context, fragments []string, lang string) ([]string, error) {
			out := make([]string, len(fragments))
			for i, f := range fragments {
				out[i] = lang + ":" + f
			}
			return out, nil
		},
	}
}

func landingData(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../testdata/landing.json")
	require.NoError(t, err)
	return string(data)
}

func TestCloner_CloneBatch(t *testing.T) {
	t.Parallel()

	t.Run("reports each item once with its own outcome", func(t *testing.T) {
		t.Parallel()

		store := &mock.ContentStore{
			CloneContentsFn: func(_ context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
				return &contentsync.CloneContentsResult{
					Cloned: []contentsync.ClonePair{{OriginalID: 10, CloneID: 20}, {OriginalID: 12, CloneID: 22}},
					Failed: []contentsync.CloneFailure{{ID: 11, Reason: "boom"}},
				}, nil
			},
			FindContentByIDFn: func(_ context.Context, id int) (*contentsync.Content, error) {
				return &contentsync.Content{ID: id, Type: "post", Title: fmt.Sprintf("Post %d", id), Body: "Hello", Status: contentsync.StatusPublish}, nil
			},
			UpdateContentFn: func(_ context.Context, id int, _ contentsync.ContentUpdate) error {
				return nil
			},
		}
		translator := &mock.Translator{
			TranslateFn: func(ctx context.Context, blocks map[string]string, lang string) (map[string]string, error) {
				if blocks[contentsync.BlockTitle] == "Post 12" {
					return nil, errors.New("quota exceeded")
				}
				return prefixTranslator().Translate(ctx, blocks, lang)
			},
		}
		c := &clone.Cloner{Store: store, Translator: translator}

		report, err := c.CloneBatch(context.Background(), []int{10, 11, 12}, "fr", nil)

		require.NoError(t, err)
		assert.Equal(t, []contentsync.ClonePair{{OriginalID: 10, CloneID: 20}}, report.Success)
		assert.Equal(t, []contentsync.CloneFailure{
			{ID: 11, Reason: contentsync.ReasonCloneFailed},
			{ID: 12, Reason: contentsync.ReasonTranslateFailed},
		}, report.Failed)
	})

	t.Run("translates plain content into a draft clone", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{
			ID: 1, Type: "page", Title: "About", Body: "<p>Who we are</p>",
			Status: contentsync.StatusPublish, Language: "en", TranslationGroup: "g1",
		})
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1}, "de", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		upd, ok := store.update(report.Success[0].CloneID)
		require.True(t, ok)
		assert.Equal(t, "de:About", *upd.Title)
		assert.Equal(t, "de:<p>Who we are</p>", *upd.Body)
		assert.Nil(t, upd.Data)
		assert.Equal(t, contentsync.StatusDraft, *upd.Status)
		assert.Equal(t, "de", *upd.Language)
		assert.Equal(t, "1", upd.Meta[contentsync.MetaSourceID])
		assert.Equal(t, contentsync.SchemaVersion, upd.Meta[contentsync.MetaSchemaVersion])
		assert.NotEmpty(t, upd.Meta[contentsync.MetaSourceHash])
	})

	t.Run("translates structured documents fragment by fragment", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{
			ID: 1, Type: "page", Title: "Landing", Data: landingData(t), Status: contentsync.StatusPublish,
		})
		c := &clone.Cloner{Store: store, Translator: prefixTranslator(), Fragments: prefixFragments()}

		report, err := c.CloneBatch(context.Background(), []int{1}, "es", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		upd, ok := store.update(report.Success[0].CloneID)
		require.True(t, ok)
		assert.Equal(t, "es:Landing", *upd.Title)
		require.NotNil(t, upd.Data)

		fragments := contentsync.CollectJSON([]byte(*upd.Data), nil)
		require.Len(t, fragments, 9)
		assert.Equal(t, "es:Welcome", fragments[0])
		assert.Equal(t, "es:<p>Hello & goodbye</p>", fragments[1])
		assert.Equal(t, "es:Clients", fragments[8])
		assert.Contains(t, *upd.Data, `"ending_number":250`)
		assert.Contains(t, *upd.Data, `<script>track()</script>`)
	})

	t.Run("falls back to the separator translator", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{
			ID: 1, Type: "page", Title: "Landing", Data: landingData(t), Status: contentsync.StatusPublish,
		})
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1}, "it", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		upd, _ := store.update(report.Success[0].CloneID)
		fragments := contentsync.CollectJSON([]byte(*upd.Data), nil)
		require.Len(t, fragments, 9)
		// Only the first fragment carries the prefix: the joined string was
		// translated as a whole.
		assert.Equal(t, "it:Welcome", fragments[0])
		assert.Equal(t, "One", fragments[2])
	})

	t.Run("translates malformed documents as plain text", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{
			ID: 1, Type: "page", Title: "Broken", Body: "Body", Data: `[{"elType":`, Status: contentsync.StatusPublish,
		})
		var events []clone.ProgressEvent
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1}, "fr", func(e clone.ProgressEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		upd, _ := store.update(report.Success[0].CloneID)
		assert.Equal(t, "fr:Body", *upd.Body)
		assert.Nil(t, upd.Data)

		var malformed bool
		for _, e := range events {
			malformed = malformed || e.Malformed
		}
		assert.True(t, malformed)
	})

	t.Run("injects a short translation and reports the mismatch", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{
			ID: 1, Type: "page", Title: "Landing", Data: landingData(t), Status: contentsync.StatusPublish,
		})
		fragments := &mock.FragmentTranslator{
			TranslateFragmentsFn: func(_ context.Context, fragments []string, _ string) ([]string, error) {
				return []string{"Bienvenue", "<p>Bonjour</p>"}, nil
			},
		}
		var mismatched []clone.ProgressEvent
		c := &clone.Cloner{Store: store, Translator: prefixTranslator(), Fragments: fragments}

		report, err := c.CloneBatch(context.Background(), []int{1}, "fr", func(e clone.ProgressEvent) {
			if e.Mismatch() {
				mismatched = append(mismatched, e)
			}
		})

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		require.Len(t, mismatched, 1)
		assert.Equal(t, 9, mismatched[0].Fragments)
		assert.Equal(t, 2, mismatched[0].Translated)

		upd, _ := store.update(report.Success[0].CloneID)
		got := contentsync.CollectJSON([]byte(*upd.Data), nil)
		assert.Equal(t, "Bienvenue", got[0])
		assert.Equal(t, "<p>Bonjour</p>", got[1])
		assert.Equal(t, "One", got[2])
	})

	t.Run("keeps one outcome per position for duplicates and unknown IDs", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(
			&contentsync.Content{ID: 1, Type: "post", Title: "A", Status: contentsync.StatusPublish},
			&contentsync.Content{ID: 2, Type: "post", Title: "B", Status: contentsync.StatusPublish},
		)
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1, 99, 1, 2}, "fr", nil)

		require.NoError(t, err)
		assert.Equal(t, 4, report.Len())
		require.Len(t, report.Success, 3)
		assert.Equal(t, 1, report.Success[0].OriginalID)
		assert.Equal(t, 1, report.Success[1].OriginalID)
		assert.NotEqual(t, report.Success[0].CloneID, report.Success[1].CloneID)
		assert.Equal(t, 2, report.Success[2].OriginalID)
		assert.Equal(t, []contentsync.CloneFailure{{ID: 99, Reason: contentsync.ReasonCloneFailed}}, report.Failed)
	})

	t.Run("fails IDs the store never mentions", func(t *testing.T) {
		t.Parallel()

		store := &mock.ContentStore{
			CloneContentsFn: func(_ context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
				return &contentsync.CloneContentsResult{}, nil
			},
		}
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{5, 6}, "fr", nil)

		require.NoError(t, err)
		assert.Empty(t, report.Success)
		assert.Equal(t, []contentsync.CloneFailure{
			{ID: 5, Reason: contentsync.ReasonCloneFailed},
			{ID: 6, Reason: contentsync.ReasonCloneFailed},
		}, report.Failed)
	})

	t.Run("fails every ID when the bulk clone call fails", func(t *testing.T) {
		t.Parallel()

		store := &mock.ContentStore{
			CloneContentsFn: func(_ context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
				return nil, errors.New("connection refused")
			},
		}
		var failures []clone.ProgressEvent
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1, 2}, "fr", func(e clone.ProgressEvent) {
			if e.State == clone.StateFailed {
				failures = append(failures, e)
			}
		})

		require.NoError(t, err)
		assert.Len(t, report.Failed, 2)
		require.Len(t, failures, 2)
		assert.ErrorContains(t, failures[0].Err, "connection refused")
	})

	t.Run("isolates update failures", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(
			&contentsync.Content{ID: 1, Type: "post", Title: "A", Status: contentsync.StatusPublish},
			&contentsync.Content{ID: 2, Type: "post", Title: "B", Status: contentsync.StatusPublish},
		)
		update := store.UpdateContentFn
		store.UpdateContentFn = func(ctx context.Context, id int, upd contentsync.ContentUpdate) error {
			if *upd.Title == "fr:A" {
				return errors.New("write failed")
			}
			return update(ctx, id, upd)
		}
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		report, err := c.CloneBatch(context.Background(), []int{1, 2}, "fr", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		assert.Equal(t, 2, report.Success[0].OriginalID)
		assert.Equal(t, []contentsync.CloneFailure{{ID: 1, Reason: contentsync.ReasonTranslateFailed}}, report.Failed)
	})

	t.Run("recovers from a panicking translator", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(
			&contentsync.Content{ID: 1, Type: "post", Title: "A", Status: contentsync.StatusPublish},
			&contentsync.Content{ID: 2, Type: "post", Title: "B", Status: contentsync.StatusPublish},
		)
		translator := &mock.Translator{
			TranslateFn: func(ctx context.Context, blocks map[string]string, lang string) (map[string]string, error) {
				if blocks[contentsync.BlockTitle] == "A" {
					panic("nil map")
				}
				return prefixTranslator().Translate(ctx, blocks, lang)
			},
		}
		var failed clone.ProgressEvent
		c := &clone.Cloner{Store: store, Translator: translator}

		report, err := c.CloneBatch(context.Background(), []int{1, 2}, "fr", func(e clone.ProgressEvent) {
			if e.State == clone.StateFailed {
				failed = e
			}
		})

		require.NoError(t, err)
		assert.Len(t, report.Success, 1)
		assert.Equal(t, []contentsync.CloneFailure{{ID: 1, Reason: contentsync.ReasonTranslateFailed}}, report.Failed)
		assert.ErrorContains(t, failed.Err, "panic")
	})

	t.Run("rejects a translator that drops blocks", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{ID: 1, Type: "post", Title: "A", Body: "B", Status: contentsync.StatusPublish})
		translator := &mock.Translator{
			TranslateFn: func(_ context.Context, blocks map[string]string, _ string) (map[string]string, error) {
				return map[string]string{contentsync.BlockTitle: "x"}, nil
			},
		}
		c := &clone.Cloner{Store: store, Translator: translator}

		report, err := c.CloneBatch(context.Background(), []int{1}, "fr", nil)

		require.NoError(t, err)
		assert.Equal(t, []contentsync.CloneFailure{{ID: 1, Reason: contentsync.ReasonTranslateFailed}}, report.Failed)
	})

	t.Run("processes items concurrently up to the limit", func(t *testing.T) {
		t.Parallel()

		var contents []*contentsync.Content
		var ids []int
		for i := 1; i <= 12; i++ {
			contents = append(contents, &contentsync.Content{ID: i, Type: "post", Title: fmt.Sprint(i), Status: contentsync.StatusPublish})
			ids = append(ids, i)
		}
		store := newMemStore(contents...)

		var running, peak atomic.Int32
		translator := &mock.Translator{
			TranslateFn: func(ctx context.Context, blocks map[string]string, lang string) (map[string]string, error) {
				n := running.Add(1)
				defer running.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				return prefixTranslator().Translate(ctx, blocks, lang)
			},
		}
		c := &clone.Cloner{Store: store, Translator: translator, Concurrency: 3}

		report, err := c.CloneBatch(context.Background(), ids, "fr", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 12)
		for i, pair := range report.Success {
			assert.Equal(t, ids[i], pair.OriginalID)
		}
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("fails unstarted items when the context is canceled", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(
			&contentsync.Content{ID: 1, Type: "post", Title: "A", Status: contentsync.StatusPublish},
			&contentsync.Content{ID: 2, Type: "post", Title: "B", Status: contentsync.StatusPublish},
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		translator := &mock.Translator{
			TranslateFn: func(ctx context.Context, blocks map[string]string, lang string) (map[string]string, error) {
				cancel()
				return prefixTranslator().Translate(ctx, blocks, lang)
			},
		}
		c := &clone.Cloner{Store: store, Translator: translator}

		report, err := c.CloneBatch(ctx, []int{1, 2}, "fr", nil)

		require.NoError(t, err)
		require.Len(t, report.Success, 1)
		assert.Equal(t, 1, report.Success[0].OriginalID)
		assert.Equal(t, []contentsync.CloneFailure{{ID: 2, Reason: contentsync.ReasonCanceled}}, report.Failed)
	})

	t.Run("emits states in order for a successful item", func(t *testing.T) {
		t.Parallel()

		store := newMemStore(&contentsync.Content{ID: 1, Type: "post", Title: "A", Status: contentsync.StatusPublish})
		var states []string
		c := &clone.Cloner{Store: store, Translator: prefixTranslator()}

		_, err := c.CloneBatch(context.Background(), []int{1}, "fr", func(e clone.ProgressEvent) {
			states = append(states, e.State.String())
		})

		require.NoError(t, err)
		assert.Equal(t, "requested cloned extracted translated injected updated succeeded", strings.Join(states, " "))
	})

	t.Run("returns an empty report for no IDs", func(t *testing.T) {
		t.Parallel()

		c := &clone.Cloner{Store: &mock.ContentStore{}, Translator: &mock.Translator{}}

		report, err := c.CloneBatch(context.Background(), nil, "fr", nil)

		require.NoError(t, err)
		assert.NotNil(t, report.Success)
		assert.NotNil(t, report.Failed)
		assert.Zero(t, report.Len())
	})

	t.Run("requires a target language", func(t *testing.T) {
		t.Parallel()

		c := &clone.Cloner{Store: &mock.ContentStore{}, Translator: &mock.Translator{}}

		_, err := c.CloneBatch(context.Background(), []int{1}, "", nil)

		assert.Equal(t, contentsync.EINVALID, contentsync.ErrorCode(err))
	})

	t.Run("requires a store and a translator", func(t *testing.T) {
		t.Parallel()

		_, err := (&clone.Cloner{Translator: &mock.Translator{}}).CloneBatch(context.Background(), []int{1}, "fr", nil)
		assert.Equal(t, contentsync.EINVALID, contentsync.ErrorCode(err))

		_, err = (&clone.Cloner{Store: &mock.ContentStore{}}).CloneBatch(context.Background(), []int{1}, "fr", nil)
		assert.Equal(t, contentsync.EINVALID, contentsync.ErrorCode(err))
	})
}

func TestHashContent(t *testing.T) {
	t.Parallel()

	a := &contentsync.Content{Title: "A", Body: "B"}
	b := &contentsync.Content{Title: "AB"}

	assert.Equal(t, clone.HashContent(a), clone.HashContent(&contentsync.Content{Title: "A", Body: "B"}))
	assert.NotEqual(t, clone.HashContent(a), clone.HashContent(b))
	assert.Len(t, clone.HashContent(a), 16)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "requested", clone.StateRequested.String())
	assert.Equal(t, "failed", clone.StateFailed.String())
	assert.Equal(t, "unknown", clone.State(99).String())
}
