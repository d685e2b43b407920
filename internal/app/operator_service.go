package app

import (
	"context"
	"fmt"

	"class_monitor/internal/domain/notification"
	domainTelegram "class_monitor/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// OperatorService relays incidents and audit copies to the person running the
// monitor. Every method is best effort: failures are logged and swallowed.
type OperatorService struct {
	mailer      Mailer
	from        string
	adminEmail  string
	policy      notification.AdminPolicy
	telegram    domainTelegram.Client // optional
	adminChatID int64
	logger      *logrus.Entry
}

func NewOperatorService(
	mailer Mailer,
	from string,
	adminEmail string,
	policy notification.AdminPolicy,
	tc domainTelegram.Client,
	adminChatID int64,
	logger *logrus.Entry,
) *OperatorService {
	return &OperatorService{
		mailer:      mailer,
		from:        from,
		adminEmail:  adminEmail,
		policy:      policy,
		telegram:    tc,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// ReportCycleFailure tells the operator a poll cycle was aborted.
func (s *OperatorService) ReportCycleFailure(ctx context.Context, err error) {
	if s == nil || !s.policy.ReportsErrors() {
		return
	}
	s.relay(ctx, fmt.Sprintf("Failed to check courses: %v", err))
}

// ReportDeliveryFailure tells the operator a client could not be notified.
func (s *OperatorService) ReportDeliveryFailure(ctx context.Context, derr *DeliveryError) {
	if s == nil || !s.policy.ReportsErrors() {
		return
	}
	s.relay(ctx, fmt.Sprintf("Failed to notify %s: %v", derr.Recipient, derr.Err))
}

// AuditCopy forwards a client message to the operator under the copy policy.
func (s *OperatorService) AuditCopy(ctx context.Context, msg OutboundMessage) {
	if s == nil || s.policy != notification.AdminCopy {
		return
	}
	s.email(ctx, fmt.Sprintf("%s -> %s", msg.Body(), msg.Recipient))
}

// Heartbeat sends a liveness note regardless of policy, unless the policy is none.
func (s *OperatorService) Heartbeat(ctx context.Context, summary string) {
	if s == nil || s.policy == notification.AdminNone {
		return
	}
	s.relay(ctx, "Class monitor is running. "+summary)
}

// ReportTermination is the last message before the process exits on a fatal error.
// It ignores the policy: an unexpected exit is always an incident.
func (s *OperatorService) ReportTermination(ctx context.Context, err error) {
	if s == nil {
		return
	}
	s.relay(ctx, fmt.Sprintf("Class monitor crashed: %v", err))
}

func (s *OperatorService) relay(ctx context.Context, text string) {
	s.email(ctx, text)

	if s.telegram == nil || s.adminChatID == 0 {
		return
	}
	if err := s.telegram.SendMessage(s.adminChatID, text); err != nil {
		s.logger.WithError(err).WithField("chat_id", s.adminChatID).Warn("Failed to relay operator message to Telegram")
	}
}

func (s *OperatorService) email(ctx context.Context, text string) {
	if s.adminEmail == "" || s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, s.from, s.adminEmail, text); err != nil {
		s.logger.WithError(err).WithField("admin_email", s.adminEmail).Warn("Failed to send operator email")
		return
	}
	s.logger.WithField("admin_email", s.adminEmail).Debug("Notified operator")
}
