package scoring

import (
	"fmt"
	"time"
)

// PreconditionError reports a missing profile requirement. Fatal to the
// scoring run; surfaced to the caller, never retried here.
type PreconditionError struct {
	UserID string
	Field  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for user %s: missing %s", e.UserID, e.Field)
}

// NoDataError reports that no metric sample exists for the target date.
// Fatal to that scoring run only.
type NoDataError struct {
	UserID string
	Date   time.Time
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no metric sample for user %s on %s", e.UserID, e.Date.Format("2006-01-02"))
}
