package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/config"
	"github.com/aquawatch/notification-service/pkg/observability"
)

const serviceName = "notification-service"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aquawatch-notify",
	Short: "AquaWatch alert and notification service",
	Long:  `Creates alerts from requests and anomaly events and dispatches them over SMS and email.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, optional)")
	rootCmd.AddCommand(serveCmd, migrateCmd, sendCmd, apikeyCmd)
}

// loadConfig reads viper config and overlays AWS secrets when aws.secret_id is set.
func loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.AWS.SecretID == "" {
		return cfg, nil
	}

	client, err := config.NewSecretsClient(ctx, cfg.AWS.Region)
	if err != nil {
		return config.Config{}, err
	}
	return config.ApplySecrets(ctx, cfg, client)
}

func setup(ctx context.Context) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func main() {
	Execute()
}
