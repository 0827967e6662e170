package main

import (
	"github.com/spf13/cobra"

	"github.com/tair/fridge-planner/internal/config"
	"github.com/tair/fridge-planner/pkg/logger"
)

// cli carries what the subcommands share.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "planner",
		Short: "Meal planner for dishes waiting in the fridge",
		Long: `Keeps a stock of prepared dishes and schedules their portions on a
two-week lunch and dinner calendar, mirrored across instances.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a YAML config file (default $PLANNER_CONFIG or ./planner.yaml)")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newMigrateCmd(c))
	root.AddCommand(newPlanCmd(c))
	return root
}

func (c *cli) load() error {
	path := c.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger.Init(cfg.Service.Name, cfg.IsDevelopment())
	logger.SetLevel(cfg.Service.LogLevel)

	logger.Logger.Debug().
		Str("config", path).
		Str("backend", cfg.Mirror.Backend).
		Str("notifier", cfg.Mirror.Notifier).
		Msg("Configuration loaded")
	return nil
}
