package main

import (
	"fmt"
	"strings"

	"class_monitor/internal/domain/course"

	"github.com/spf13/cobra"
)

func newCoursesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the courses and sections the config tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCourses(cfg.Courses))
			return nil
		},
	}
}

func renderCourses(courses []*course.TrackedCourse) string {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, []string{c.Label(), c.Title, c.Term, strings.Join(c.DesiredSections, ", "), c.ClientEmail})
	}
	return renderTable([]string{"Course", "Title", "Term", "Sections", "Client"}, rows)
}
