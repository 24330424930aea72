package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Task is a direct-send request consumed from the notifications queue.
type Task struct {
	ID      string `json:"id,omitempty"`
	Type    Type   `json:"type"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

func (t Task) Validate() error {
	if t.Type != SMS && t.Type != Email {
		return fmt.Errorf("unsupported notification type %q", t.Type)
	}
	if strings.TrimSpace(t.To) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return errors.New("body is required")
	}
	return nil
}

// Registry maps each channel to its dispatcher.
type Registry struct {
	dispatchers map[Type]*Dispatcher
}

func NewRegistry(dispatchers ...*Dispatcher) *Registry {
	r := &Registry{dispatchers: make(map[Type]*Dispatcher)}
	for _, d := range dispatchers {
		r.dispatchers[d.Channel()] = d
	}
	return r
}

func (r *Registry) Get(t Type) (*Dispatcher, error) {
	d, ok := r.dispatchers[t]
	if !ok {
		return nil, fmt.Errorf("no dispatcher registered for %s", t)
	}
	return d, nil
}

// Worker processes direct-send tasks. Tasks carrying an ID are sent at most
// once per day when a Redis client is present.
type Worker struct {
	registry *Registry
	redis    *redis.Client
	logger   *zap.Logger
}

func NewWorker(registry *Registry, redisClient *redis.Client, logger *zap.Logger) *Worker {
	return &Worker{registry: registry, redis: redisClient, logger: logger}
}

// ProcessTask returns an error only for malformed tasks and for transport or
// storage failures; a rejected send has already been logged and is acknowledged.
func (w *Worker) ProcessTask(ctx context.Context, body []byte) error {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	task.Type = Type(strings.ToUpper(string(task.Type)))
	if err := task.Validate(); err != nil {
		return err
	}

	if task.ID != "" && w.redis != nil {
		exists, err := w.redis.Exists(ctx, sentKey(task.ID)).Result()
		if err != nil {
			w.logger.Warn("redis error checking idempotency", zap.String("task_id", task.ID), zap.Error(err))
		} else if exists > 0 {
			w.logger.Info("task already processed", zap.String("task_id", task.ID))
			return nil
		}
	}

	d, err := w.registry.Get(task.Type)
	if err != nil {
		return err
	}

	sent, err := d.Send(ctx, Request{Recipient: task.To, Subject: task.Subject, Body: task.Body})
	if err != nil {
		return err
	}

	if task.ID != "" && w.redis != nil {
		if err := w.redis.Set(ctx, sentKey(task.ID), "1", 24*time.Hour).Err(); err != nil {
			w.logger.Warn("failed to mark task as processed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	w.logger.Info("processed notification task",
		zap.String("task_id", task.ID), zap.String("type", string(task.Type)), zap.Bool("sent", sent))
	return nil
}

func sentKey(id string) string {
	return "notif:sent:" + id
}
