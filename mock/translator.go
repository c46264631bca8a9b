package mock

import (
	"context"

	"github.com/fwojciec/contentsync"
)

var _ contentsync.Translator = (*Translator)(nil)

// Translator is a mock implementation of contentsync.Translator.
type Translator struct {
	TranslateFn func(ctx context.Context, blocks map[string]string, targetLanguage string) (map[string]string, error)
}

func (t *Translator) Translate(ctx context.Context, blocks map[string]string, targetLanguage string) (map[string]string, error) {
	return t.TranslateFn(ctx, blocks, targetLanguage)
}

var _ contentsync.FragmentTranslator = (*FragmentTranslator)(nil)

// FragmentTranslator is a mock implementation of contentsync.FragmentTranslator.
type FragmentTranslator struct {
	TranslateFragmentsFn func(ctx context.Context, fragments []string, targetLanguage string) ([]string, error)
}

func (t *FragmentTranslator) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) ([]string, error) {
	return t.TranslateFragmentsFn(ctx, fragments, targetLanguage)
}
