// internal/domain/notification/repository.go
package notification

import (
	"context"

	"class_monitor/internal/domain/section"
)

// Repository keeps the history of poll cycles, what they saw, and what they sent.
type Repository interface {
	// Cycle methods
	CreateCycle(ctx context.Context, cycle *Cycle) error
	FinishCycle(ctx context.Context, cycle *Cycle) error
	GetLastCycle(ctx context.Context) (*Cycle, error)

	// Snapshot methods
	SaveSnapshots(ctx context.Context, snapshots []Snapshot) error
	ListSnapshotsByCycle(ctx context.Context, cycleID string) ([]Snapshot, error)
	// GetLastSectionStatus returns the most recent status recorded for the section
	// in a cycle other than excludeCycleID.
	GetLastSectionStatus(ctx context.Context, courseNumber, term, sectionID, excludeCycleID string) (section.Status, error)

	// Delivery methods
	SaveDelivery(ctx context.Context, d *Delivery) error
	ListDeliveriesByCycle(ctx context.Context, cycleID string) ([]Delivery, error)
}
