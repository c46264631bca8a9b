package slog

import (
	"log/slog"

	"github.com/fwojciec/contentsync/clone"
)

// ProgressLogger returns a clone.ProgressFunc that logs each event.
// Success is logged at info level, failures at error level and fragment
// count mismatches at warn level. Everything else is debug.
func ProgressLogger(logger *slog.Logger) clone.ProgressFunc {
	return func(e clone.ProgressEvent) {
		attrs := []any{"id", e.ID, "state", e.State.String()}
		if e.TargetID != 0 {
			attrs = append(attrs, "target", e.TargetID)
		}

		switch {
		case e.State == clone.StateFailed:
			attrs = append(attrs, "reason", e.Reason, "err", e.Err)
			logger.Error("content failed", attrs...)
		case e.Mismatch():
			attrs = append(attrs, "fragments", e.Fragments, "translated", e.Translated)
			logger.Warn("fragment count mismatch", attrs...)
		case e.State == clone.StateSucceeded:
			logger.Info("content done", attrs...)
		default:
			if e.Malformed {
				attrs = append(attrs, "malformed", true)
			}
			if e.Fragments > 0 {
				attrs = append(attrs, "fragments", e.Fragments)
			}
			logger.Debug("content progress", attrs...)
		}
	}
}
