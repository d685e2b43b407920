package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"class_monitor/internal/app"
	"class_monitor/internal/domain/notification"
	domainTelegram "class_monitor/internal/domain/telegram"
	"class_monitor/internal/infra/config"
	idb "class_monitor/internal/infra/database"
	"class_monitor/internal/infra/email"
	"class_monitor/internal/infra/logger"
	"class_monitor/internal/infra/registration"
	"class_monitor/internal/infra/scheduler"
	"class_monitor/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// services is everything a run or check command needs, wired from config.
type services struct {
	monitor   *app.MonitorService
	operator  *app.OperatorService
	scheduler *scheduler.PollScheduler
	history   *idb.HistoryRepository // nil when history is disabled
	bot       *telebot.Bot           // nil when Telegram is disabled

	db         *sql.DB
	botStarted bool
}

// buildServices wires the application. mailer is nil for the SMTP mailer.
func buildServices(ctx context.Context, cfg *config.AppConfig, mailer app.Mailer) (*services, error) {
	s := &services{}
	mainLogger := logger.Component("main")

	if cfg.DatabaseURL != "" {
		db, dialect, err := idb.NewConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		s.db = db
		s.history = idb.NewHistoryRepository(db, dialect)
		if err := s.history.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare history schema: %w", err)
		}
		mainLogger.WithField("dialect", dialect).Info("History store ready")
	}

	if mailer == nil {
		mailer = email.NewSMTPMailer(email.SMTPConfig{
			Server:   cfg.Notification.SMTPServer,
			Port:     cfg.Notification.SMTPPort,
			Username: cfg.Notification.Username,
			Password: cfg.Notification.Password,
		})
	}

	var tg domainTelegram.Client
	if cfg.Telegram.Enabled() {
		bot, err := newBot(cfg.Telegram.Token)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.bot = bot
		tg = telegram.NewTelebotAdapter(bot)
	}

	s.operator = app.NewOperatorService(
		mailer,
		cfg.Notification.FromEmail,
		cfg.Notification.AdminEmail,
		cfg.AdminNotify,
		tg,
		cfg.Telegram.AdminID,
		logger.Component("operator"),
	)

	// keep a nil interface, not a typed nil, when history is off
	var history notification.Repository
	if s.history != nil {
		history = s.history
	}

	notifier := app.NewNotificationService(mailer, cfg.Notification.FromEmail, s.operator, history, logger.Component("notifier"))

	sessions := registration.NewFactory(registration.Options{
		PortalURL:       cfg.Registration.PortalURL,
		CourseSearchURL: cfg.Registration.CourseSearchURL,
	}, logger.Component("registration"))

	s.monitor = app.NewMonitorService(
		cfg.Courses,
		sessions,
		app.Credentials{Username: cfg.Registration.Username, Password: cfg.Registration.Password},
		app.MonitorOptions{
			SettleDelay:     cfg.OperationDelay,
			NotifyOnFull:    cfg.NotifyOnFull,
			SuppressRepeats: cfg.SuppressRepeats,
		},
		notifier,
		history,
		logger.Component("monitor"),
	)

	s.scheduler = scheduler.NewPollScheduler(s.monitor, s.operator, logger.Component("scheduler"), cfg.CheckInterval, cfg.HeartbeatSpec)

	if s.bot != nil {
		var cycles telegram.CycleSource
		if s.history != nil {
			cycles = s.history
		}
		telegram.RegisterOperatorCommands(ctx, s.bot, cfg.Telegram.AdminID, cycles, cfg.Courses, logger.Component("telegram"))
	}
	return s, nil
}

func newBot(token string) (*telebot.Bot, error) {
	botLogger := logger.Component("telebot")
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "text": c.Text()})
			}
			entry.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return bot, nil
}

// startBot begins long polling for operator commands.
func (s *services) startBot() {
	if s.bot == nil {
		return
	}
	s.botStarted = true
	go s.bot.Start()
}

func (s *services) Close() {
	if s.botStarted {
		s.bot.Stop()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close database")
		}
	}
}
