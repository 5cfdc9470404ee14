package main

import (
	"context"
	"fmt"
	"time"

	"github.com/watchdog-hq/sentinel/internal/statusview"
)

// printStatus renders a human-readable snapshot of one project (or every
// project, when projectID is empty) using output.go's pretty-print helpers,
// the same way the teacher's CLI renders service/recovery status.
func printStatus(ctx commandContext, a *app, projectID string) int {
	now := time.Now().Unix()

	var projects []statusview.ProjectSummary
	if projectID != "" {
		summary, err := a.view.Project(context.Background(), projectID, now)
		if err != nil {
			writef(ctx.stderr, "status: %v\n", err)
			return 1
		}
		projects = []statusview.ProjectSummary{summary}
	} else {
		all, err := a.view.Overview(context.Background(), now)
		if err != nil {
			writef(ctx.stderr, "status: %v\n", err)
			return 1
		}
		projects = all
	}

	if len(projects) == 0 {
		writeln(ctx.stdout, "no projects registered")
		return 0
	}

	for i, p := range projects {
		if i > 0 {
			writeln(ctx.stdout, "")
		}
		printHeading(ctx.stdout, fmt.Sprintf("%s (%s)", p.DisplayName, p.ID))
		rows := []outputRow{
			{Key: "maintenance", Value: fmt.Sprintf("%t", p.InMaintenance)},
		}
		printRows(ctx.stdout, rows)
		for _, c := range p.Checks {
			label := c.Name
			if c.DisplayName != "" {
				label = c.DisplayName
			}
			printRows(ctx.stdout, []outputRow{
				{Key: label, Value: string(c.Status)},
			})
		}
	}
	return 0
}
