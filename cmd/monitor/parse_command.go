package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"class_monitor/internal/domain/section"
	"class_monitor/internal/infra/registration"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	var listing section.Listing
	var desired []string

	cmd := &cobra.Command{
		Use:   "parse <saved-page.html>",
		Short: "Parse a saved section listing page and print every section found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := registration.RowsFromHTML(f)
			if err != nil {
				return err
			}
			parser, err := section.NewParser(listing)
			if err != nil {
				return err
			}
			records, err := parser.Parse(rows)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records, desired, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().StringVar(&listing.Subject, "subject", "", "subject code, e.g. FNCE")
	cmd.Flags().StringVar(&listing.Number, "number", "", "course number, e.g. 3228")
	cmd.Flags().StringVar(&listing.Title, "name", "", "course title as listed")
	cmd.Flags().StringSliceVar(&desired, "section", nil, "only show these sections (reports missing ones as unmatched)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func renderRecords(records map[string]section.Record, desired []string, colorize bool) string {
	if len(desired) == 0 {
		for id := range records {
			desired = append(desired, id)
		}
		sort.Strings(desired)
	}

	rows := make([][]string, 0, len(desired))
	for _, a := range section.ClassifyDesired(records, desired) {
		row := []string{a.SectionID, "", "", "", "", "", statusCell(a.Status, colorize)}
		if a.Record != nil {
			row[1] = a.Record.StatusPrefix
			row[2] = strconv.Itoa(a.Record.Capacity)
			row[3] = strconv.Itoa(a.Record.Enrolled)
			row[4] = strconv.Itoa(a.Record.Remaining)
			row[5] = strconv.Itoa(a.Record.WaitlistCount)
		}
		rows = append(rows, row)
	}
	return renderTable(
		[]string{"Section", "Flag", "Cap", "Act", "Rem", "WL", "Status"},
		rows,
		2, 3, 4, 5,
	)
}
