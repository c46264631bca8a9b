package slog_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	csslog "github.com/fwojciec/contentsync/slog"
	"github.com/stretchr/testify/assert"
)

func TestProgressLogger(t *testing.T) {
	t.Parallel()

	t.Run("logs failures at error level with reason", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		progress := csslog.ProgressLogger(debugLogger(&buf))

		progress(clone.ProgressEvent{ID: 12, TargetID: 22, State: clone.StateFailed, Reason: contentsync.ReasonTranslateFailed, Err: errors.New("quota")})

		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "id=12")
		assert.Contains(t, output, "target=22")
		assert.Contains(t, output, "err=quota")
	})

	t.Run("warns on fragment mismatch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		progress := csslog.ProgressLogger(debugLogger(&buf))

		progress(clone.ProgressEvent{ID: 1, State: clone.StateInjected, Fragments: 9, Translated: 2})

		output := buf.String()
		assert.Contains(t, output, "fragment count mismatch")
		assert.Contains(t, output, "fragments=9")
		assert.Contains(t, output, "translated=2")
	})

	t.Run("logs success at info and steps at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		progress := csslog.ProgressLogger(debugLogger(&buf))

		progress(clone.ProgressEvent{ID: 1, State: clone.StateExtracted, Fragments: 3, Malformed: false})
		progress(clone.ProgressEvent{ID: 1, TargetID: 2, State: clone.StateSucceeded})

		output := buf.String()
		assert.Contains(t, output, "level=DEBUG msg=\"content progress\" id=1 state=extracted fragments=3")
		assert.Contains(t, output, "level=INFO msg=\"content done\" id=1 state=succeeded target=2")
	})
}
