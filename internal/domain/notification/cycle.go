// internal/domain/notification/cycle.go
package notification

import (
	"database/sql"
	"time"
)

// Cycle is one recorded poll cycle: a full pass over every tracked course.
type Cycle struct {
	ID         string // UUID assigned when the cycle starts
	StartedAt  time.Time
	FinishedAt sql.NullTime // unset while the cycle is running
	Outcome    CycleOutcome
	Error      sql.NullString // set when Outcome is CycleFailed
}
