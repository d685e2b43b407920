// internal/domain/notification/shared_types.go
package notification

import "fmt"

// CycleOutcome records how a poll cycle ended.
type CycleOutcome string

const (
	CycleRunning CycleOutcome = "running"
	CycleOK      CycleOutcome = "ok"
	CycleFailed  CycleOutcome = "failed"
)

// AdminPolicy controls what the operator is told about.
type AdminPolicy string

const (
	AdminNone   AdminPolicy = "none"   // nothing
	AdminErrors AdminPolicy = "errors" // failed cycles and failed deliveries
	AdminCopy   AdminPolicy = "copy"   // errors plus an audit copy of every client message
)

// ParseAdminPolicy accepts only the known policy names.
func ParseAdminPolicy(s string) (AdminPolicy, error) {
	switch p := AdminPolicy(s); p {
	case AdminNone, AdminErrors, AdminCopy:
		return p, nil
	default:
		return "", fmt.Errorf("unknown admin_notify policy %q (want none, errors or copy)", s)
	}
}

// ReportsErrors reports whether failures should be relayed to the operator.
func (p AdminPolicy) ReportsErrors() bool {
	return p == AdminErrors || p == AdminCopy
}
