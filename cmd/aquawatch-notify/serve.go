package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/alert"
	"github.com/aquawatch/notification-service/internal/api"
	"github.com/aquawatch/notification-service/internal/config"
	"github.com/aquawatch/notification-service/internal/ingest"
	"github.com/aquawatch/notification-service/internal/notification"
	"github.com/aquawatch/notification-service/internal/stream"
	"github.com/aquawatch/notification-service/pkg/apikey"
	"github.com/aquawatch/notification-service/pkg/bcryptutil"
	"github.com/aquawatch/notification-service/pkg/database"
	"github.com/aquawatch/notification-service/pkg/messaging"
	"github.com/aquawatch/notification-service/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the anomaly and task consumers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdownTracer, err := observability.InitTracer(ctx, observability.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.OTel.Endpoint,
	}, logger)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracer(context.Background())
	}

	db, err := database.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to postgres")

	logs := notification.NewPostgresLogRepository(db)
	sms, email := newDispatchers(cfg, logs, logger)

	hub := stream.NewHub(logger)
	go hub.Run(ctx)
	listeners := []alert.Listener{hub}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		defer producer.Close()
		listeners = append(listeners, stream.NewKafkaPublisher(producer))
	}

	alerts := alert.NewService(alert.NewPostgresRepository(db), sms, email, cfg.Alert, logger, listeners...)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, de-duplication degraded", zap.Error(err))
		}
	}

	startIngest(ctx, cfg, alerts, rdb, logger)
	if err := startWorker(ctx, cfg, notification.NewRegistry(sms, email), rdb, logger); err != nil {
		return err
	}

	handler := api.NewHandler(alerts, sms, email, logs, logger)
	router := api.NewRouter(handler, newAuthenticator(cfg.Auth), http.HandlerFunc(hub.ServeWS))

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(router, "notification-request"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newAuthenticator(cfg config.AuthConfig) *api.Authenticator {
	if !cfg.Enabled() {
		return nil
	}
	var keys *apikey.Verifier
	if len(cfg.APIKeyHashes) > 0 {
		keys = apikey.NewVerifier(cfg.APIKeyHashes, bcryptutil.New())
	}
	return api.NewAuthenticator(cfg.JWTSecret, keys)
}

func startIngest(ctx context.Context, cfg config.Config, alerts *alert.Service, rdb *redis.Client, logger *zap.Logger) {
	var dedup *ingest.Deduper
	if rdb != nil {
		dedup = ingest.NewDeduper(rdb, logger)
	}
	h := ingest.NewHandler(alerts, dedup, logger)

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.AnomalyTopic, cfg.Kafka.GroupID, logger)
		go func() {
			defer consumer.Close()
			h.ConsumeKafka(ctx, consumer)
		}()
		logger.Info("consuming anomalies from kafka", zap.String("topic", cfg.Kafka.AnomalyTopic))
	}

	if cfg.MQTT.Broker != "" {
		client, err := messaging.NewMQTTClient(messaging.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if err != nil {
			logger.Error("mqtt ingress disabled", zap.Error(err))
			return
		}
		if err := h.SubscribeMQTT(ctx, client, cfg.MQTT.Topic); err != nil {
			logger.Error("mqtt ingress disabled", zap.Error(err))
			client.Close()
			return
		}
		go func() {
			<-ctx.Done()
			client.Close()
		}()
		logger.Info("subscribed to anomalies over mqtt", zap.String("topic", cfg.MQTT.Topic))
	}
}

func startWorker(ctx context.Context, cfg config.Config, registry *notification.Registry, rdb *redis.Client, logger *zap.Logger) error {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}

	client, err := messaging.NewRabbitMQClient(messaging.RabbitConfig{URL: cfg.RabbitMQ.URL}, logger)
	if err != nil {
		return err
	}
	if _, err := client.DeclareQueueWithDLQ(cfg.RabbitMQ.Queue); err != nil {
		client.Close()
		return err
	}

	worker := notification.NewWorker(registry, rdb, logger)
	go func() {
		defer client.Close()
		if err := client.Consume(ctx, cfg.RabbitMQ.Queue, worker.ProcessTask); err != nil {
			logger.Error("notification worker stopped", zap.Error(err))
		}
	}()
	logger.Info("notification worker consuming", zap.String("queue", cfg.RabbitMQ.Queue))
	return nil
}
