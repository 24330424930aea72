package ingest

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupTTL = 24 * time.Hour

// Deduper guards against alerting twice for the same anomaly id.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(client *redis.Client, logger *zap.Logger) *Deduper {
	return &Deduper{client: client, ttl: dedupTTL, logger: logger}
}

// Claim reports whether the caller should alert for anomalyID.
// When Redis is unavailable it logs and lets the anomaly through.
func (d *Deduper) Claim(ctx context.Context, anomalyID string) bool {
	ok, err := d.client.SetNX(ctx, alertedKey(anomalyID), "1", d.ttl).Result()
	if err != nil {
		d.logger.Warn("redis unavailable, skipping de-duplication", zap.String("anomaly_id", anomalyID), zap.Error(err))
		return true
	}
	return ok
}

// Release drops a claim so a failed anomaly can be retried.
func (d *Deduper) Release(ctx context.Context, anomalyID string) {
	if err := d.client.Del(ctx, alertedKey(anomalyID)).Err(); err != nil {
		d.logger.Warn("failed to release anomaly claim", zap.String("anomaly_id", anomalyID), zap.Error(err))
	}
}

func alertedKey(id string) string {
	return "anomaly:alerted:" + id
}
