// Package slog provides logging decorators for contentsync services using
// the standard structured logger.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/contentsync"
)

// Compile-time interface checks.
var (
	_ contentsync.Translator         = (*LoggingTranslator)(nil)
	_ contentsync.FragmentTranslator = (*LoggingFragmentTranslator)(nil)
)

// LoggingTranslator wraps a Translator with logging.
type LoggingTranslator struct {
	next   contentsync.Translator
	logger *slog.Logger
}

// NewLoggingTranslator creates a new LoggingTranslator.
func NewLoggingTranslator(next contentsync.Translator, logger *slog.Logger) *LoggingTranslator {
	return &LoggingTranslator{next: next, logger: logger}
}

// Translate delegates to the wrapped translator and logs the call.
func (t *LoggingTranslator) Translate(ctx context.Context, blocks map[string]string, targetLanguage string) (out map[string]string, err error) {
	defer func(begin time.Time) {
		t.logger.Debug("translate blocks",
			"lang", targetLanguage,
			"blocks", len(blocks),
			"chars", blockChars(blocks),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.Translate(ctx, blocks, targetLanguage)
}

func blockChars(blocks map[string]string) int {
	n := 0
	for _, v := range blocks {
		n += len(v)
	}
	return n
}

// LoggingFragmentTranslator wraps a FragmentTranslator with logging.
// Count mismatches are logged at warn level.
type LoggingFragmentTranslator struct {
	next   contentsync.FragmentTranslator
	logger *slog.Logger
}

// NewLoggingFragmentTranslator creates a new LoggingFragmentTranslator.
func NewLoggingFragmentTranslator(next contentsync.FragmentTranslator, logger *slog.Logger) *LoggingFragmentTranslator {
	return &LoggingFragmentTranslator{next: next, logger: logger}
}

// TranslateFragments delegates to the wrapped translator and logs the call.
func (t *LoggingFragmentTranslator) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) (out []string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err == nil && len(out) != len(fragments) {
			level = slog.LevelWarn
		}
		t.logger.Log(ctx, level, "translate fragments",
			"lang", targetLanguage,
			"fragments", len(fragments),
			"translated", len(out),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.TranslateFragments(ctx, fragments, targetLanguage)
}
