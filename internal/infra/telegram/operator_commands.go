// internal/infra/telegram/operator_commands.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"class_monitor/internal/domain/course"
	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// CycleSource reports the most recent poll cycle and what it saw and sent.
type CycleSource interface {
	GetLastCycle(ctx context.Context) (*notification.Cycle, error)
	ListSnapshotsByCycle(ctx context.Context, cycleID string) ([]notification.Snapshot, error)
	ListDeliveriesByCycle(ctx context.Context, cycleID string) ([]notification.Delivery, error)
}

// RegisterOperatorCommands wires /start, /status and /courses. Only the
// configured admin gets answers. cycles may be nil when no history store is configured.
func RegisterOperatorCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	cycles CycleSource,
	courses []*course.TrackedCourse,
	baseLogger *logrus.Entry,
) {
	commandLogger := baseLogger.WithField("handler_group", "operator")
	guard := func(command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return adminOnly(adminTelegramID, commandLogger, command, next)
	}

	b.Handle("/start", guard("/start", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send(fmt.Sprintf("Hi %s, class monitor is watching %d courses.\n/status - last poll cycle\n/courses - tracked courses",
			c.Sender().FirstName, len(courses)))
	}))

	b.Handle("/status", guard("/status", func(c telebot.Context, log *logrus.Entry) error {
		if cycles == nil {
			return c.Send("No history store is configured.")
		}
		return c.Send(statusReport(ctx, cycles, log))
	}))

	b.Handle("/courses", guard("/courses", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send(coursesText(courses))
	}))
}

// adminOnly answers only the configured admin. Updates without a sender,
// such as channel posts, are ignored.
func adminOnly(adminTelegramID int64, logger *logrus.Entry, command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			logger.WithField("command", command).Debug("Ignoring command without a sender")
			return nil
		}
		log := logger.WithFields(logrus.Fields{"command": command, "sender_id": sender.ID})
		log.Info("Command received")
		if sender.ID != adminTelegramID {
			log.Warn("Unauthorized access attempt")
			return c.Send("This bot only talks to its operator.")
		}
		return next(c, log)
	}
}

// statusReport describes the last cycle with its section statuses and any
// failed deliveries.
func statusReport(ctx context.Context, cycles CycleSource, log *logrus.Entry) string {
	cycle, err := cycles.GetLastCycle(ctx)
	if err != nil || cycle == nil {
		log.WithError(err).Warn("Could not load last cycle")
		return statusText(nil, nil, nil)
	}
	snapshots, err := cycles.ListSnapshotsByCycle(ctx, cycle.ID)
	if err != nil {
		log.WithError(err).Warn("Could not load section snapshots")
	}
	deliveries, err := cycles.ListDeliveriesByCycle(ctx, cycle.ID)
	if err != nil {
		log.WithError(err).Warn("Could not load deliveries")
	}
	return statusText(cycle, snapshots, deliveries)
}

func statusText(cycle *notification.Cycle, snapshots []notification.Snapshot, deliveries []notification.Delivery) string {
	if cycle == nil {
		return "No poll cycle has been recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle %s started %s: %s", cycle.ID, cycle.StartedAt.Format(time.RFC1123), cycle.Outcome)
	if cycle.FinishedAt.Valid {
		fmt.Fprintf(&b, " after %s", cycle.FinishedAt.Time.Sub(cycle.StartedAt).Round(time.Second))
	}
	if cycle.Error.Valid {
		fmt.Fprintf(&b, "\nError: %s", cycle.Error.String)
	}
	for _, snap := range snapshots {
		fmt.Fprintf(&b, "\n%s %s %s: %s", snap.CourseNumber, snap.Term, snap.SectionID, snap.Status)
		if snap.Status != section.StatusUnmatched {
			fmt.Fprintf(&b, " (%d/%d, %d open)", snap.Enrolled, snap.Capacity, snap.Remaining)
		}
	}
	sent := 0
	for _, d := range deliveries {
		if d.Error.Valid {
			fmt.Fprintf(&b, "\nFailed to notify %s: %s", d.Recipient, d.Error.String)
			continue
		}
		sent++
	}
	if len(deliveries) > 0 {
		fmt.Fprintf(&b, "\nNotified %d of %d clients", sent, len(deliveries))
	}
	return b.String()
}

func coursesText(courses []*course.TrackedCourse) string {
	if len(courses) == 0 {
		return "No courses are tracked."
	}
	var b strings.Builder
	for i, c := range courses {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s (%s) sections %s for %s",
			c.Label(), c.Title, c.Term, strings.Join(c.DesiredSections, ", "), c.ClientEmail)
	}
	return b.String()
}
