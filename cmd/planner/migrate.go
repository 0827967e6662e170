package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tair/fridge-planner/internal/config"
	"github.com/tair/fridge-planner/internal/planner"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the planner tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Mirror.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate needs the %s backend, configured %q", config.BackendPostgres, c.cfg.Mirror.Backend)
			}
			return planner.Migrate(c.cfg)
		},
	}
}
