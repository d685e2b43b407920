// internal/app/monitor_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"class_monitor/internal/domain/course"
	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Credentials for the registration site.
type Credentials struct {
	Username string
	Password string
}

// MonitorOptions tune a MonitorService. Zero values are valid.
type MonitorOptions struct {
	SettleDelay     time.Duration // wait after each navigation step
	NotifyOnFull    bool
	SuppressRepeats bool // needs a history repository
}

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	ID         string
	Results    []Result
	Messages   []OutboundMessage
	Failures   []*DeliveryError
	StartedAt  time.Time
	FinishedAt time.Time
}

// Unmatched returns the results whose section was not found on the listing.
func (r *CycleReport) Unmatched() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == section.StatusUnmatched {
			out = append(out, res)
		}
	}
	return out
}

// MonitorService runs poll cycles over the tracked courses.
type MonitorService struct {
	courses     []*course.TrackedCourse
	openSession SessionFactory
	credentials Credentials
	opts        MonitorOptions
	notifier    *NotificationService
	history     notification.Repository // optional
	logger      *logrus.Entry

	sleep func(time.Duration)
	now   func() time.Time
}

func NewMonitorService(
	courses []*course.TrackedCourse,
	openSession SessionFactory,
	credentials Credentials,
	opts MonitorOptions,
	notifier *NotificationService,
	history notification.Repository,
	logger *logrus.Entry,
) *MonitorService {
	return &MonitorService{
		courses:     courses,
		openSession: openSession,
		credentials: credentials,
		opts:        opts,
		notifier:    notifier,
		history:     history,
		logger:      logger,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// Courses returns the tracked courses in check order.
func (s *MonitorService) Courses() []*course.TrackedCourse {
	return s.courses
}

// RunCycle checks every course once and notifies clients. A navigation or
// parse failure aborts the whole cycle before anything is sent.
func (s *MonitorService) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.NewString(), StartedAt: s.now()}
	log := s.logger.WithField("cycle_id", report.ID)
	log.Info("Starting poll cycle")

	cycle := &notification.Cycle{ID: report.ID, StartedAt: report.StartedAt, Outcome: notification.CycleRunning}
	s.recordStart(ctx, log, cycle)

	results, err := s.scrape(ctx, log)
	if err != nil {
		s.recordFinish(ctx, log, cycle, err)
		return nil, err
	}
	report.Results = results
	s.recordSnapshots(ctx, log, report.ID, results)

	report.Messages = ComposeMessages(s.filterRepeats(ctx, log, report.ID, results), s.opts.NotifyOnFull)
	report.Failures = s.notifier.Deliver(ctx, report.ID, report.Messages)

	s.recordFinish(ctx, log, cycle, nil)
	report.FinishedAt = s.now()
	log.WithFields(logrus.Fields{
		"messages": len(report.Messages),
		"failures": len(report.Failures),
	}).Info("Poll cycle finished")
	return report, nil
}

func (s *MonitorService) scrape(ctx context.Context, log *logrus.Entry) (results []Result, err error) {
	sess, err := s.openSession(ctx)
	if err != nil {
		return nil, &NavigationError{Step: "open session", Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close registration session")
		}
	}()

	if err := sess.Login(ctx, s.credentials.Username, s.credentials.Password); err != nil {
		return nil, &NavigationError{Step: "login", Err: err}
	}
	s.settle()

	for _, c := range s.courses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		courseResults, err := s.checkCourse(ctx, sess, c, log.WithField("course", c.Label()))
		if err != nil {
			return nil, fmt.Errorf("check %s (%s): %w", c.Label(), c.Term, err)
		}
		results = append(results, courseResults...)
	}
	return results, nil
}

func (s *MonitorService) checkCourse(ctx context.Context, sess Session, c *course.TrackedCourse, log *logrus.Entry) ([]Result, error) {
	steps := []struct {
		name string
		run  func() error
	}{
		{"open course search", func() error { return sess.OpenCourseSearch(ctx) }},
		{"select term", func() error { return sess.SelectTerm(ctx, c.Term) }},
		{"select subject", func() error { return sess.SelectSubject(ctx, c.Subject) }},
		{"select course", func() error { return sess.SelectCourse(ctx, c.Title, c.Number) }},
	}
	for _, step := range steps {
		err := step.run()
		if errors.Is(err, ErrCourseNotFound) {
			log.Warn("Course is not offered in this term, sections unmatched")
			return unmatched(c), nil
		}
		if err != nil {
			return nil, &NavigationError{Step: step.name, Err: err}
		}
		s.settle()
	}

	rows, err := sess.Rows(ctx)
	if err != nil {
		return nil, &NavigationError{Step: "read rows", Err: err}
	}

	parser, err := section.NewParser(section.Listing{Subject: c.Subject, Number: c.Number, Title: c.Title})
	if err != nil {
		return nil, err
	}
	records, err := parser.Parse(rows)
	if err != nil {
		return nil, err
	}
	log.WithField("sections_found", len(records)).Debug("Parsed course listing")

	availability := section.ClassifyDesired(records, c.DesiredSections)
	results := make([]Result, 0, len(availability))
	for _, a := range availability {
		entry := log.WithFields(logrus.Fields{"section": a.SectionID, "status": a.Status})
		if a.Status == section.StatusUnmatched {
			entry.Warn("Could not find section on the listing")
		} else {
			entry.Info("Checked section")
		}
		results = append(results, Result{Course: c, Availability: a})
	}
	return results, nil
}

func unmatched(c *course.TrackedCourse) []Result {
	availability := section.ClassifyDesired(nil, c.DesiredSections)
	results := make([]Result, 0, len(availability))
	for _, a := range availability {
		results = append(results, Result{Course: c, Availability: a})
	}
	return results
}

func (s *MonitorService) settle() {
	if s.opts.SettleDelay > 0 {
		s.sleep(s.opts.SettleDelay)
	}
}

// filterRepeats drops results whose status matches the last recorded one.
// Lookup failures keep the result.
func (s *MonitorService) filterRepeats(ctx context.Context, log *logrus.Entry, cycleID string, results []Result) []Result {
	if !s.opts.SuppressRepeats || s.history == nil {
		return results
	}
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		prev, err := s.history.GetLastSectionStatus(ctx, r.Course.Number, r.Course.Term, r.SectionID, cycleID)
		if err == nil && prev == r.Status {
			log.WithFields(logrus.Fields{"course": r.Course.Label(), "section": r.SectionID}).Debug("Status unchanged, not notifying")
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (s *MonitorService) recordStart(ctx context.Context, log *logrus.Entry, cycle *notification.Cycle) {
	if s.history == nil {
		return
	}
	if err := s.history.CreateCycle(ctx, cycle); err != nil {
		log.WithError(err).Warn("Could not record cycle start")
	}
}

func (s *MonitorService) recordFinish(ctx context.Context, log *logrus.Entry, cycle *notification.Cycle, cycleErr error) {
	if s.history == nil {
		return
	}
	cycle.FinishedAt = sql.NullTime{Time: s.now(), Valid: true}
	cycle.Outcome = notification.CycleOK
	if cycleErr != nil {
		cycle.Outcome = notification.CycleFailed
		cycle.Error = sql.NullString{String: cycleErr.Error(), Valid: true}
	}
	// A cancelled cycle still gets its outcome recorded.
	if err := s.history.FinishCycle(context.WithoutCancel(ctx), cycle); err != nil {
		log.WithError(err).Warn("Could not record cycle outcome")
	}
}

func (s *MonitorService) recordSnapshots(ctx context.Context, log *logrus.Entry, cycleID string, results []Result) {
	if s.history == nil || len(results) == 0 {
		return
	}
	snapshots := make([]notification.Snapshot, 0, len(results))
	for _, r := range results {
		snap := notification.Snapshot{
			CycleID:      cycleID,
			CourseNumber: r.Course.Number,
			Term:         r.Course.Term,
			SectionID:    r.SectionID,
			Status:       r.Status,
		}
		if r.Record != nil {
			snap.Capacity = r.Record.Capacity
			snap.Enrolled = r.Record.Enrolled
			snap.Remaining = r.Record.Remaining
			snap.WaitlistCount = r.Record.WaitlistCount
		}
		snapshots = append(snapshots, snap)
	}
	if err := s.history.SaveSnapshots(ctx, snapshots); err != nil {
		log.WithError(err).Warn("Could not record section snapshots")
	}
}
