package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"class_monitor/internal/app"
	"class_monitor/internal/domain/section"

	"github.com/spf13/cobra"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single poll cycle and print what was found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateForRun(); err != nil {
				return err
			}

			var mailer app.Mailer
			if dryRun {
				mailer = &printMailer{out: cmd.OutOrStdout()}
			}
			svc, err := buildServices(cmd.Context(), cfg, mailer)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(report.Results, shouldColorize(cmd.OutOrStdout())))
			fmt.Fprintf(cmd.OutOrStdout(), "%d message(s), %d failed delivery(ies)\n", len(report.Messages), len(report.Failures))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print messages instead of emailing them")
	return cmd
}

// printMailer writes messages to the terminal instead of sending them.
type printMailer struct {
	out io.Writer
}

func (m *printMailer) Send(_ context.Context, from, to, body string) error {
	_, err := fmt.Fprintf(m.out, "From: %s\nTo: %s\n\n%s\n\n", from, to, body)
	return err
}

func renderResults(results []app.Result, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{r.Course.Label(), r.Course.Term, r.SectionID, "", "", "", "", statusCell(r.Status, colorize), r.Course.ClientEmail}
		if r.Record != nil {
			row[3] = strconv.Itoa(r.Record.Capacity)
			row[4] = strconv.Itoa(r.Record.Enrolled)
			row[5] = strconv.Itoa(r.Record.Remaining)
			row[6] = strconv.Itoa(r.Record.WaitlistCount)
		}
		rows = append(rows, row)
	}
	return renderTable(
		[]string{"Course", "Term", "Section", "Cap", "Act", "Rem", "WL", "Status", "Client"},
		rows,
		3, 4, 5, 6,
	)
}

func statusCell(status section.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case section.StatusAvailable:
		return ansiGreen + string(status) + ansiReset
	case section.StatusNotAvailable:
		return ansiRed + string(status) + ansiReset
	case section.StatusUnmatched:
		return ansiYellow + string(status) + ansiReset
	default:
		return string(status)
	}
}
