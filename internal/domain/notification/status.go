// internal/domain/notification/status.go
package notification

import (
	"database/sql"
	"time"

	"class_monitor/internal/domain/section"
)

// Snapshot is the recorded state of one desired section in one cycle.
// Numeric fields are zero for Unmatched sections.
type Snapshot struct {
	CycleID       string
	CourseNumber  string
	Term          string
	SectionID     string
	Capacity      int
	Enrolled      int
	Remaining     int
	WaitlistCount int
	Status        section.Status
}

// Delivery is one attempt to hand a composed message to the mail channel.
type Delivery struct {
	CycleID   string
	Recipient string
	Body      string
	Error     sql.NullString // set when the send failed
	SentAt    time.Time
}
