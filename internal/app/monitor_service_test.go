package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"class_monitor/internal/domain/course"
	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"

	"github.com/stretchr/testify/require"
)

var listingRows = []string{
	"C 50849 FNCE 3228 001 3.000 Advanced Corporate Finance\nLEC\nTR 11:30 am-12:50 pm 35 35 0 35 5 30 Staff 09/09-12/22 EB EB2122",
	"Note:\nPrerequisite checking is in effect for this course.",
	"50850 FNCE 3228 002 3.000 Advanced Corporate Finance\nLEC\nMW 10:00 am-11:20 am 40 38 2 0 0 0 Staff 09/09-12/22 EB EB1010",
}

type monitorFixture struct {
	session *fakeSession
	mailer  *fakeMailer
	history *memoryHistory
	sleeps  []time.Duration
	svc     *MonitorService
}

func newMonitorFixture(t *testing.T, opts MonitorOptions, courses ...*course.TrackedCourse) *monitorFixture {
	t.Helper()
	f := &monitorFixture{
		session: &fakeSession{rows: map[string][]string{"3228": listingRows}, missing: map[string]bool{}},
		mailer:  &fakeMailer{},
		history: &memoryHistory{},
	}
	operator := NewOperatorService(f.mailer, "monitor@example.com", "admin@example.com", notification.AdminErrors, nil, 0, testLogger())
	notifier := NewNotificationService(f.mailer, "monitor@example.com", operator, f.history, testLogger())
	f.svc = NewMonitorService(courses, f.session.factory(), Credentials{Username: "u", Password: "p"}, opts, notifier, f.history, testLogger())
	f.svc.sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	return f
}

func TestRunCycleNotifiesAvailableSections(t *testing.T) {
	c := mustCourse(t, "ana@example.com", "3228", "50849", "50850", "59999")
	f := newMonitorFixture(t, MonitorOptions{SettleDelay: 2 * time.Second}, c)

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	require.True(t, f.session.closed)
	require.Equal(t, []string{"login", "search", "term", "subject", "course", "rows"}, f.session.calls)
	require.Len(t, f.sleeps, 5)

	require.Len(t, report.Results, 3)
	require.Equal(t, section.StatusNotAvailable, report.Results[0].Status)
	require.Equal(t, section.StatusAvailable, report.Results[1].Status)
	require.Len(t, report.Unmatched(), 1)

	sent := f.mailer.to("ana@example.com")
	require.Len(t, sent, 1)
	require.Equal(t, "FNCE.3228(50850) has space available", sent[0].Body)
	require.Equal(t, "monitor@example.com", sent[0].From)

	require.Len(t, f.history.cycles, 1)
	require.Equal(t, notification.CycleOK, f.history.cycles[0].Outcome)
	require.Len(t, f.history.snapshots, 3)
	require.Equal(t, 35, f.history.snapshots[0].WaitlistCount)
	require.Len(t, f.history.deliveries, 1)
}

func TestRunCycleAbortsOnNavigationError(t *testing.T) {
	c := mustCourse(t, "ana@example.com", "3228", "50850")
	f := newMonitorFixture(t, MonitorOptions{}, c)
	f.session.failStep = "subject"

	report, err := f.svc.RunCycle(context.Background())
	require.Nil(t, report)

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	require.Equal(t, "select subject", navErr.Step)

	require.True(t, f.session.closed)
	require.Empty(t, f.mailer.sent)
	require.Equal(t, notification.CycleFailed, f.history.cycles[0].Outcome)
	require.True(t, f.history.cycles[0].Error.Valid)

	// the recorded error names the course, not the client
	require.Equal(t, "check FNCE.3228 (Fall 2024): navigation failed at select subject: page did not load", err.Error())
	require.NotContains(t, f.history.cycles[0].Error.String, "ana@example.com")
	require.NotContains(t, f.history.cycles[0].Error.String, "\n")
}

func TestRunCycleAbortsOnParseError(t *testing.T) {
	c := mustCourse(t, "ana@example.com", "3228", "50850")
	f := newMonitorFixture(t, MonitorOptions{}, c)
	f.session.rows["3228"] = []string{"50850 FNCE 3228 002 3.000 Advanced Corporate Finance\nLEC\nTBA Staff"}

	_, err := f.svc.RunCycle(context.Background())

	var parseErr *section.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.True(t, f.session.closed)
	require.Empty(t, f.mailer.sent)
}

func TestRunCycleCourseNotFoundMarksSectionsUnmatched(t *testing.T) {
	missing := mustCourse(t, "bo@example.com", "4400", "51000")
	present := mustCourse(t, "ana@example.com", "3228", "50850")
	f := newMonitorFixture(t, MonitorOptions{}, missing, present)
	f.session.missing["4400"] = true

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Unmatched(), 1)
	require.Equal(t, "51000", report.Unmatched()[0].SectionID)
	require.Len(t, f.mailer.to("ana@example.com"), 1)
	require.Empty(t, f.mailer.to("bo@example.com"))
}

func TestRunCycleSuppressRepeats(t *testing.T) {
	c := mustCourse(t, "ana@example.com", "3228", "50850")
	f := newMonitorFixture(t, MonitorOptions{SuppressRepeats: true}, c)

	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	second, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	require.Empty(t, second.Messages)
	require.Len(t, f.mailer.to("ana@example.com"), 1)
	require.Len(t, f.history.cycles, 2)
}

func TestRunCycleOpenSessionFailure(t *testing.T) {
	c := mustCourse(t, "ana@example.com", "3228", "50850")
	f := newMonitorFixture(t, MonitorOptions{}, c)
	f.svc.openSession = func(context.Context) (Session, error) { return nil, errors.New("dial tcp: refused") }

	_, err := f.svc.RunCycle(context.Background())
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	require.Equal(t, "open session", navErr.Step)
}
