package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "class_monitor",
		Short:         "Watch course sections and email clients when seats open",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() || cmd.Name() == "help" || cmd.Name() == "parse" {
				ctx.initLogging("", "")
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default is ./class_monitor.conf, then $HOME/.class_monitor.conf)")
	rootCmd.PersistentFlags().StringVarP(&logLevelFlag, "log-level", "l", "", "override log level: debug, info, warn, error")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newCoursesCommand(ctx))

	return rootCmd
}
