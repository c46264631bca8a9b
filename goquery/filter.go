// Package goquery provides HTML-aware helpers for page-builder fragments
// using the goquery library.
package goquery

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/contentsync"
)

// Compile-time interface verification.
var _ contentsync.FragmentTranslator = (*TextFilter)(nil)

// HasText reports whether fragment holds visible text once markup, scripts
// and styles are removed. Digits, symbols and whitespace alone do not count.
func HasText(fragment string) bool {
	text := fragment
	if strings.Contains(fragment, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			return true
		}
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

// TextFilter forwards only fragments with visible text to the next
// translator. The others are returned unchanged in their original position.
type TextFilter struct {
	next contentsync.FragmentTranslator
}

// NewTextFilter creates a new TextFilter.
func NewTextFilter(next contentsync.FragmentTranslator) *TextFilter {
	return &TextFilter{next: next}
}

// TranslateFragments implements contentsync.FragmentTranslator.
//
// When next returns fewer items than it was sent, the result is cut at the
// first fragment left untranslated so callers still see a short answer.
func (f *TextFilter) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) ([]string, error) {
	var positions []int
	var send []string
	for i, fragment := range fragments {
		if HasText(fragment) {
			positions = append(positions, i)
			send = append(send, fragment)
		}
	}

	result := slices.Clone(fragments)
	if result == nil {
		result = []string{}
	}
	if len(send) == 0 {
		return result, nil
	}

	out, err := f.next.TranslateFragments(ctx, send, targetLanguage)
	if err != nil {
		return nil, err
	}

	for i, pos := range positions {
		if i >= len(out) {
			return result[:pos], nil
		}
		result[pos] = out[i]
	}
	return result, nil
}
