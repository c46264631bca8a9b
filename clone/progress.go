package clone

import "sync"

// State is a step in the life of one requested item.
type State int

// States in the order an item passes through them. StateFailed is terminal
// and reachable from any other state.
const (
	StateRequested State = iota
	StateCloned
	StateExtracted
	StateTranslated
	StateInjected
	StateUpdated
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateRequested:  "requested",
	StateCloned:     "cloned",
	StateExtracted:  "extracted",
	StateTranslated: "translated",
	StateInjected:   "injected",
	StateUpdated:    "updated",
	StateSucceeded:  "succeeded",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ProgressEvent reports a state transition for one item.
type ProgressEvent struct {
	// ID is the source content ID.
	ID int

	// TargetID is the clone (or synced sibling) ID, zero until known.
	TargetID int

	State State

	// Reason and Err are set when State is StateFailed.
	Reason string
	Err    error

	// Fragments is the number of extracted fragments, Translated the number
	// returned by the translator. Both are zero for plain bodies.
	Fragments  int
	Translated int

	// Malformed is set when a structured document could not be parsed and
	// the body was translated as plain text instead.
	Malformed bool
}

// Mismatch reports whether the translator returned a different number of
// fragments than were extracted, leaving some text untranslated.
func (e ProgressEvent) Mismatch() bool {
	return e.State == StateInjected && e.Fragments != e.Translated
}

// ProgressFunc is a callback for reporting progress.
type ProgressFunc func(event ProgressEvent)

// serialize wraps fn so concurrent workers never call it in parallel.
// A nil fn yields a no-op.
func serialize(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(ProgressEvent) {}
	}
	var mu sync.Mutex
	return func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fn(event)
	}
}
