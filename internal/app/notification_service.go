// internal/app/notification_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"class_monitor/internal/domain/course"
	"class_monitor/internal/domain/notification"
	"class_monitor/internal/domain/section"

	"github.com/sirupsen/logrus"
)

// Mailer sends one plain-text message.
type Mailer interface {
	Send(ctx context.Context, from, to, body string) error
}

// Result is the availability of one desired section, tagged with its course.
type Result struct {
	Course *course.TrackedCourse
	section.Availability
}

// OutboundMessage is the consolidated message for one client in one cycle.
type OutboundMessage struct {
	Recipient string
	Lines     []string
}

func (m OutboundMessage) Body() string {
	return strings.Join(m.Lines, "\n")
}

// DeliveryError records a message the mail channel refused or failed to send.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ComposeMessages groups results by client and builds one message per client
// that has at least one line worth sending. Clients keep the order in which
// they first appear in results.
func ComposeMessages(results []Result, notifyOnFull bool) []OutboundMessage {
	var order []string
	lines := make(map[string][]string)
	for _, r := range results {
		line, ok := messageLine(r, notifyOnFull)
		if !ok {
			continue
		}
		client := r.Course.ClientEmail
		if _, seen := lines[client]; !seen {
			order = append(order, client)
		}
		lines[client] = append(lines[client], line)
	}

	msgs := make([]OutboundMessage, 0, len(order))
	for _, client := range order {
		msgs = append(msgs, OutboundMessage{Recipient: client, Lines: lines[client]})
	}
	return msgs
}

func messageLine(r Result, notifyOnFull bool) (string, bool) {
	switch r.Status {
	case section.StatusAvailable:
		return fmt.Sprintf("%s(%s) has space available", r.Course.Label(), r.SectionID), true
	case section.StatusNotAvailable:
		if notifyOnFull {
			return fmt.Sprintf("%s(%s) doesn't have any space available.", r.Course.Label(), r.SectionID), true
		}
	}
	return "", false
}

// NotificationService delivers composed messages and keeps a record of every attempt.
type NotificationService struct {
	mailer   Mailer
	from     string
	operator *OperatorService
	history  notification.Repository // optional
	logger   *logrus.Entry
}

func NewNotificationService(
	mailer Mailer,
	from string,
	operator *OperatorService,
	history notification.Repository,
	logger *logrus.Entry,
) *NotificationService {
	return &NotificationService{
		mailer:   mailer,
		from:     from,
		operator: operator,
		history:  history,
		logger:   logger,
	}
}

// Deliver sends each message once. A failed send is recorded and reported to
// the operator but never stops the remaining recipients.
func (s *NotificationService) Deliver(ctx context.Context, cycleID string, msgs []OutboundMessage) []*DeliveryError {
	var failures []*DeliveryError
	for _, msg := range msgs {
		log := s.logger.WithFields(logrus.Fields{"cycle_id": cycleID, "recipient": msg.Recipient, "lines": len(msg.Lines)})
		body := msg.Body()

		record := &notification.Delivery{CycleID: cycleID, Recipient: msg.Recipient, Body: body, SentAt: time.Now()}
		if err := s.mailer.Send(ctx, s.from, msg.Recipient, body); err != nil {
			derr := &DeliveryError{Recipient: msg.Recipient, Err: err}
			failures = append(failures, derr)
			record.Error = sql.NullString{String: err.Error(), Valid: true}
			log.WithError(err).Error("Failed to notify client")
			s.operator.ReportDeliveryFailure(ctx, derr)
		} else {
			log.Info("Notified client")
			s.operator.AuditCopy(ctx, msg)
		}

		if s.history != nil {
			if err := s.history.SaveDelivery(ctx, record); err != nil {
				log.WithError(err).Warn("Could not record delivery")
			}
		}
	}
	return failures
}
