package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tair/fridge-planner/internal/config"
	"github.com/tair/fridge-planner/internal/planner"
	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/usecase/query"
)

func newPlanCmd(c *cli) *cobra.Command {
	var (
		start  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the two-week meal plan stored in postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if start != "" {
				if _, err := domain.ParseDate(start); err != nil {
					return err
				}
			}
			// The memory backend starts empty in every process.
			if c.cfg.Mirror.Backend != config.BackendPostgres {
				return fmt.Errorf("plan needs the %s backend, configured %q", config.BackendPostgres, c.cfg.Mirror.Backend)
			}

			app, cleanup, err := planner.InitializeApp(c.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := app.Queries.GetPlan.Handle(cmd.Context(), query.GetPlanQuery{Start: start})
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), plan, asJSON)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Any day of the first week, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	return cmd
}

func writePlan(out io.Writer, plan query.Plan, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	return printPlan(out, plan)
}

func printPlan(out io.Writer, plan query.Plan) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDAY\tLUNCH\tDINNER")
	for _, day := range plan.Days {
		marker := ""
		if day.Today {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", day.Date, marker, day.Weekday[:3], cellText(day.Lunch), cellText(day.Dinner))
	}
	return w.Flush()
}

func cellText(c *query.PlanCell) string {
	if c == nil {
		return "-"
	}
	text := c.DishName
	if c.Type == domain.SlotTypeLeftover {
		text += " (leftover)"
	}
	if c.Orphan {
		text += " [deleted]"
	}
	return text
}
