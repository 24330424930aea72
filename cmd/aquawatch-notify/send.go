package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/config"
	"github.com/aquawatch/notification-service/internal/notification"
	"github.com/aquawatch/notification-service/pkg/database"
	"github.com/aquawatch/notification-service/pkg/messaging"
)

var (
	sendTo      string
	sendSubject string
	sendMessage string
	sendEnqueue bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a one-off notification through the dispatch core",
}

var sendSMSCmd = &cobra.Command{
	Use:   "sms",
	Short: "Send an SMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd, notification.SMS)
	},
}

var sendEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Send an email",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendSubject == "" {
			return fmt.Errorf("--subject is required")
		}
		return runSend(cmd, notification.Email)
	},
}

func init() {
	for _, c := range []*cobra.Command{sendSMSCmd, sendEmailCmd} {
		c.Flags().StringVar(&sendTo, "to", "", "recipient phone number or email address")
		c.Flags().StringVar(&sendMessage, "message", "", "message body")
		c.MarkFlagRequired("to")
		c.MarkFlagRequired("message")
		c.Flags().BoolVar(&sendEnqueue, "enqueue", false, "publish to the notifications queue instead of sending inline")
	}
	sendEmailCmd.Flags().StringVar(&sendSubject, "subject", "", "email subject")
	sendCmd.AddCommand(sendSMSCmd, sendEmailCmd)
}

func runSend(cmd *cobra.Command, channel notification.Type) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if sendEnqueue {
		return enqueue(cmd, cfg, logger, channel)
	}

	db, err := database.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	sms, email := newDispatchers(cfg, notification.NewPostgresLogRepository(db), logger)
	d, err := notification.NewRegistry(sms, email).Get(channel)
	if err != nil {
		return err
	}

	sent, err := d.Send(ctx, notification.Request{Recipient: sendTo, Subject: sendSubject, Body: sendMessage})
	if err != nil {
		return err
	}
	if !sent {
		return fmt.Errorf("%s to %s was not sent, see notification logs", channel, sendTo)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s sent to %s\n", channel, sendTo)
	return nil
}

func enqueue(cmd *cobra.Command, cfg config.Config, logger *zap.Logger, channel notification.Type) error {
	if cfg.RabbitMQ.URL == "" {
		return errors.New("rabbitmq.url is not configured")
	}
	ctx := cmd.Context()

	client, err := messaging.NewRabbitMQClient(messaging.RabbitConfig{URL: cfg.RabbitMQ.URL}, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	if _, err := client.DeclareQueueWithDLQ(cfg.RabbitMQ.Queue); err != nil {
		return err
	}

	task := notification.Task{ID: uuid.NewString(), Type: channel, To: sendTo, Subject: sendSubject, Body: sendMessage}
	if err := task.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := client.Publish(ctx, cfg.RabbitMQ.Queue, body); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s task %s\n", channel, task.ID)
	return nil
}
