package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := database.Migrate(cfg.Database.DSN); err != nil {
			return err
		}
		logger.Info("migrations applied", zap.String("service", serviceName))
		return nil
	},
}
