package plan

import (
	"errors"
	"fmt"
)

// ErrCorruptRecord marks a stored program that exists but cannot be
// decoded. Callers must surface it rather than fall back to an empty
// program.
var ErrCorruptRecord = errors.New("stored program is not valid JSON")

// ValidationError reports a field-level problem with an action or
// session. It is an expected, user-recoverable condition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OverlapError reports a violation of the minimum-spacing invariant,
// naming the conflicting pair.
type OverlapError struct {
	First  string
	Second string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("sessions %q and %q are closer than %s apart; keep at least %d hours between sessions",
		e.First, e.Second, MinSessionGap, int(MinSessionGap.Hours()))
}
