package contentsync

import (
	"context"
	"strings"
)

// Block names used when translating a content item.
const (
	BlockTitle   = "title"
	BlockContent = "content"
)

// FragmentSeparator joins fragments for services that only accept a single
// text. It must survive translation verbatim, which is not guaranteed.
const FragmentSeparator = "|||"

// Translator translates named text blocks into a target language.
type Translator interface {
	// Translate returns the blocks translated into targetLanguage.
	// The result must have exactly the same keys as blocks.
	Translate(ctx context.Context, blocks map[string]string, targetLanguage string) (map[string]string, error)
}

// FragmentTranslator translates an ordered list of text fragments.
// Implementations should return one translation per fragment, in order.
// A shorter result is tolerated by callers: trailing fragments stay untranslated.
type FragmentTranslator interface {
	TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) ([]string, error)
}

// CheckBlocks returns EINTERNAL if out does not have the same key set as in.
func CheckBlocks(in, out map[string]string) error {
	if len(in) != len(out) {
		return Errorf(EINTERNAL, "translation returned %d blocks, want %d", len(out), len(in))
	}
	for name := range in {
		if _, ok := out[name]; !ok {
			return Errorf(EINTERNAL, "translation is missing block %q", name)
		}
	}
	return nil
}

// JoinFragments joins fragments with FragmentSeparator.
func JoinFragments(fragments []string) string {
	return strings.Join(fragments, FragmentSeparator)
}

// SplitFragments splits text on FragmentSeparator.
func SplitFragments(text string) []string {
	return strings.Split(text, FragmentSeparator)
}

// Ensure SeparatorTranslator implements FragmentTranslator at compile time.
var _ FragmentTranslator = (*SeparatorTranslator)(nil)

// SeparatorTranslator adapts a block Translator to the FragmentTranslator
// interface by sending all fragments as one separator-joined block.
// Prefer a native FragmentTranslator when one is available.
type SeparatorTranslator struct {
	Translator Translator
}

// TranslateFragments joins fragments, translates them as a single block and
// splits the result. The count may differ if the separator was altered.
func (t *SeparatorTranslator) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) ([]string, error) {
	if len(fragments) == 0 {
		return []string{}, nil
	}

	blocks := map[string]string{BlockContent: JoinFragments(fragments)}
	out, err := t.Translator.Translate(ctx, blocks, targetLanguage)
	if err != nil {
		return nil, err
	}
	if err := CheckBlocks(blocks, out); err != nil {
		return nil, err
	}
	return SplitFragments(out[BlockContent]), nil
}
