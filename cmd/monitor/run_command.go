package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"class_monitor/internal/infra/logger"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the registration site until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateForRun(); err != nil {
				return err
			}

			lock := flock.New(ctx.configPath + ".lock")
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another class monitor is already running with this config")
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(runCtx, cfg, nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			mainLogger := logger.Component("main")
			defer func() {
				if r := recover(); r != nil {
					svc.operator.ReportTermination(context.WithoutCancel(runCtx), fmt.Errorf("panic: %v", r))
					panic(r)
				}
			}()

			mainLogger.WithFields(logrus.Fields{
				"courses":  len(cfg.Courses),
				"interval": cfg.CheckInterval,
			}).Info("Class monitor starting")
			for _, c := range cfg.Courses {
				mainLogger.WithField("course", c.Label()).Info(c.String())
			}

			svc.startBot()
			if err := svc.scheduler.Run(runCtx); err != nil {
				svc.operator.ReportTermination(context.WithoutCancel(runCtx), err)
				return err
			}
			mainLogger.Info("Class monitor shut down gracefully")
			return nil
		},
	}
}
