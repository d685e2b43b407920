package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"
)

// Custom errors
var ErrCycleNotFound = errors.New("poll cycle not found")
var ErrSectionStatusNotFound = errors.New("no recorded status for section")

const schema = `
CREATE TABLE IF NOT EXISTS poll_cycles (
  id           VARCHAR(36) PRIMARY KEY,
  started_at   TIMESTAMP NOT NULL,
  started_unix BIGINT NOT NULL,
  finished_at  TIMESTAMP,
  outcome      VARCHAR(16) NOT NULL,
  error        TEXT
);
CREATE TABLE IF NOT EXISTS section_snapshots (
  cycle_id       VARCHAR(36) NOT NULL,
  course_number  VARCHAR(16) NOT NULL,
  term           VARCHAR(16) NOT NULL,
  section_id     VARCHAR(8) NOT NULL,
  capacity       INTEGER NOT NULL,
  enrolled       INTEGER NOT NULL,
  remaining      INTEGER NOT NULL,
  waitlist_count INTEGER NOT NULL,
  status         VARCHAR(64) NOT NULL,
  PRIMARY KEY (cycle_id, course_number, term, section_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_section ON section_snapshots(course_number, term, section_id);
CREATE TABLE IF NOT EXISTS deliveries (
  cycle_id  VARCHAR(36) NOT NULL,
  recipient TEXT NOT NULL,
  body      TEXT NOT NULL,
  error     TEXT,
  sent_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_cycle ON deliveries(cycle_id);
`

// HistoryRepository stores cycles, snapshots and deliveries in postgres or sqlite.
type HistoryRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewHistoryRepository(db *sql.DB, dialect Dialect) *HistoryRepository {
	return &HistoryRepository{db: db, dialect: dialect}
}

// EnsureSchema creates the history tables when they do not exist yet.
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating history schema: %w", err)
	}
	return nil
}

func (r *HistoryRepository) q(query string) string {
	return rebind(r.dialect, query)
}

// --- Cycle Methods ---

func (r *HistoryRepository) CreateCycle(ctx context.Context, cycle *notification.Cycle) error {
	if cycle.Outcome == "" {
		cycle.Outcome = notification.CycleRunning
	}
	started := cycle.StartedAt.UTC()
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO poll_cycles (id, started_at, started_unix, outcome) VALUES (?, ?, ?, ?)`),
		cycle.ID, started, started.UnixNano(), cycle.Outcome)
	if err != nil {
		return fmt.Errorf("error creating poll cycle: %w", err)
	}
	return nil
}

func (r *HistoryRepository) FinishCycle(ctx context.Context, cycle *notification.Cycle) error {
	if !cycle.FinishedAt.Valid {
		cycle.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE poll_cycles SET finished_at = ?, outcome = ?, error = ? WHERE id = ?`),
		cycle.FinishedAt.Time.UTC(), cycle.Outcome, cycle.Error, cycle.ID)
	if err != nil {
		return fmt.Errorf("error finishing poll cycle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *HistoryRepository) GetLastCycle(ctx context.Context) (*notification.Cycle, error) {
	query := `SELECT id, started_at, finished_at, outcome, error FROM poll_cycles ORDER BY started_unix DESC LIMIT 1`
	c := notification.Cycle{}
	err := r.db.QueryRowContext(ctx, query).Scan(&c.ID, &c.StartedAt, &c.FinishedAt, &c.Outcome, &c.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting last poll cycle: %w", err)
	}
	return &c, nil
}

// --- Snapshot Methods ---

func (r *HistoryRepository) SaveSnapshots(ctx context.Context, snapshots []notification.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for snapshots: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, r.q(`INSERT INTO section_snapshots
		(cycle_id, course_number, term, section_id, capacity, enrolled, remaining, waitlist_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err := stmt.ExecContext(ctx, s.CycleID, s.CourseNumber, s.Term, s.SectionID,
			s.Capacity, s.Enrolled, s.Remaining, s.WaitlistCount, string(s.Status))
		if err != nil {
			return fmt.Errorf("error inserting snapshot (cycle %s, section %s): %w", s.CycleID, s.SectionID, err)
		}
	}

	return txn.Commit()
}

func (r *HistoryRepository) ListSnapshotsByCycle(ctx context.Context, cycleID string) ([]notification.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT cycle_id, course_number, term, section_id, capacity, enrolled, remaining, waitlist_count, status
		FROM section_snapshots WHERE cycle_id = ? ORDER BY course_number, term, section_id`), cycleID)
	if err != nil {
		return nil, fmt.Errorf("error querying snapshots by cycle: %w", err)
	}
	defer rows.Close()

	snapshots := make([]notification.Snapshot, 0)
	for rows.Next() {
		var s notification.Snapshot
		var status string
		if err := rows.Scan(&s.CycleID, &s.CourseNumber, &s.Term, &s.SectionID,
			&s.Capacity, &s.Enrolled, &s.Remaining, &s.WaitlistCount, &status); err != nil {
			return nil, fmt.Errorf("error scanning snapshot row: %w", err)
		}
		s.Status = section.Status(status)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

func (r *HistoryRepository) GetLastSectionStatus(ctx context.Context, courseNumber, term, sectionID, excludeCycleID string) (section.Status, error) {
	query := r.q(`SELECT s.status
		FROM section_snapshots s JOIN poll_cycles c ON c.id = s.cycle_id
		WHERE s.course_number = ? AND s.term = ? AND s.section_id = ? AND s.cycle_id != ?
		ORDER BY c.started_unix DESC LIMIT 1`)
	var status string
	err := r.db.QueryRowContext(ctx, query, courseNumber, term, sectionID, excludeCycleID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrSectionStatusNotFound
		}
		return "", fmt.Errorf("error getting last section status: %w", err)
	}
	return section.Status(status), nil
}

// --- Delivery Methods ---

func (r *HistoryRepository) SaveDelivery(ctx context.Context, d *notification.Delivery) error {
	if d.SentAt.IsZero() {
		d.SentAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO deliveries (cycle_id, recipient, body, error, sent_at) VALUES (?, ?, ?, ?, ?)`),
		d.CycleID, d.Recipient, d.Body, d.Error, d.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("error saving delivery to %s: %w", d.Recipient, err)
	}
	return nil
}

func (r *HistoryRepository) ListDeliveriesByCycle(ctx context.Context, cycleID string) ([]notification.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT cycle_id, recipient, body, error, sent_at
		FROM deliveries WHERE cycle_id = ? ORDER BY sent_at`), cycleID)
	if err != nil {
		return nil, fmt.Errorf("error querying deliveries by cycle: %w", err)
	}
	defer rows.Close()

	deliveries := make([]notification.Delivery, 0)
	for rows.Next() {
		var d notification.Delivery
		if err := rows.Scan(&d.CycleID, &d.Recipient, &d.Body, &d.Error, &d.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery rows: %w", err)
	}
	return deliveries, nil
}
