package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"class_monitor/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner runs one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*app.CycleReport, error)
}

// Operator receives cycle failures and heartbeats.
type Operator interface {
	ReportCycleFailure(ctx context.Context, err error)
	Heartbeat(ctx context.Context, summary string)
}

// PollScheduler runs cycles back to back with a fixed pause after each one
// ends, and a cron heartbeat that never overlaps a cycle.
type PollScheduler struct {
	cronEngine    *cron.Cron
	runner        CycleRunner
	operator      Operator
	logger        *logrus.Entry
	interval      time.Duration
	heartbeatSpec string

	mu         sync.Mutex // held for the duration of a cycle or heartbeat
	lastReport *app.CycleReport
	lastErr    error
	lastAt     time.Time
}

func NewPollScheduler(
	runner CycleRunner,
	operator Operator,
	logger *logrus.Entry,
	interval time.Duration,
	heartbeatSpec string, // e.g. "0 9 * * *"; empty disables the heartbeat
) *PollScheduler {
	return &PollScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cron.PrintfLogger(logger)),
		),
		runner:        runner,
		operator:      operator,
		logger:        logger,
		interval:      interval,
		heartbeatSpec: heartbeatSpec,
	}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately.
// A cycle in progress is allowed to finish its current step before Run returns.
func (s *PollScheduler) Run(ctx context.Context) error {
	if s.heartbeatSpec != "" {
		_, err := s.cronEngine.AddFunc(s.heartbeatSpec, func() { s.heartbeat(ctx) })
		if err != nil {
			return fmt.Errorf("could not add heartbeat cron job %q: %w", s.heartbeatSpec, err)
		}
	}
	s.cronEngine.Start()
	s.logger.WithField("interval", s.interval).Info("Poll scheduler started")
	defer s.stop()

	for {
		s.RunOnce(ctx)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce runs a single cycle and reports its failure to the operator.
// The error is returned for callers that run a single cycle on demand.
func (s *PollScheduler) RunOnce(ctx context.Context) (*app.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.runner.RunCycle(ctx)
	s.lastAt = time.Now()
	s.lastErr = err
	if err != nil {
		s.logger.WithError(err).Error("Poll cycle failed")
		if ctx.Err() == nil {
			s.operator.ReportCycleFailure(ctx, err)
		}
		return nil, err
	}
	s.lastReport = report
	return report, nil
}

func (s *PollScheduler) heartbeat(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.summary()
	s.logger.WithField("summary", summary).Info("Sending heartbeat")
	s.operator.Heartbeat(ctx, summary)
}

func (s *PollScheduler) summary() string {
	if s.lastAt.IsZero() {
		return "No cycle has completed yet."
	}
	if s.lastErr != nil {
		return fmt.Sprintf("Last cycle at %s failed: %v", s.lastAt.Format(time.RFC3339), s.lastErr)
	}
	return fmt.Sprintf("Last cycle at %s checked %d sections and sent %d messages.",
		s.lastAt.Format(time.RFC3339), len(s.lastReport.Results), len(s.lastReport.Messages))
}

func (s *PollScheduler) stop() {
	s.logger.Info("Stopping poll scheduler...")
	ctx := s.cronEngine.Stop() // waits for a running heartbeat
	<-ctx.Done()
	s.logger.Info("Poll scheduler stopped")
}
