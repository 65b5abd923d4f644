package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"appforge/internal/gateway/config"
	"appforge/internal/gateway/repository/apps"
)

func installMigrateCmd(a *App) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			return apps.Migrate(cfg.Database.URL, a.logger)
		},
	}
	a.cmd.AddCommand(cmd)
}
