package notification

import (
	"context"
	"database/sql"
	"time"
)

// LogRepository stores notification logs.
type LogRepository interface {
	Save(ctx context.Context, entry *NotificationLog) error
	FindAll(ctx context.Context) ([]*NotificationLog, error)
	FindByType(ctx context.Context, t Type) ([]*NotificationLog, error)
	FindByStatus(ctx context.Context, status Status) ([]*NotificationLog, error)
	FindByAlert(ctx context.Context, alertID string) ([]*NotificationLog, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*NotificationLog, error)
}

// PostgresLogRepository is the Postgres LogRepository.
type PostgresLogRepository struct {
	db *sql.DB
}

func NewPostgresLogRepository(db *sql.DB) *PostgresLogRepository {
	return &PostgresLogRepository{db: db}
}

const selectLogs = `
	SELECT id, notification_type, recipient, subject, message, status, error_message, timestamp, alert_id
	FROM notification_logs`

func (r *PostgresLogRepository) Save(ctx context.Context, entry *NotificationLog) error {
	query := `
		INSERT INTO notification_logs (id, notification_type, recipient, subject, message, status, error_message, timestamp, alert_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Type, entry.Recipient, entry.Subject, entry.Message,
		entry.Status, entry.ErrorMessage, entry.Timestamp, entry.AlertID,
	)
	return err
}

func (r *PostgresLogRepository) FindAll(ctx context.Context) ([]*NotificationLog, error) {
	return r.query(ctx, selectLogs+` ORDER BY timestamp DESC`)
}

func (r *PostgresLogRepository) FindByType(ctx context.Context, t Type) ([]*NotificationLog, error) {
	return r.query(ctx, selectLogs+` WHERE notification_type = $1 ORDER BY timestamp DESC`, t)
}

func (r *PostgresLogRepository) FindByStatus(ctx context.Context, status Status) ([]*NotificationLog, error) {
	return r.query(ctx, selectLogs+` WHERE status = $1 ORDER BY timestamp DESC`, status)
}

func (r *PostgresLogRepository) FindByAlert(ctx context.Context, alertID string) ([]*NotificationLog, error) {
	return r.query(ctx, selectLogs+` WHERE alert_id = $1 ORDER BY timestamp DESC`, alertID)
}

func (r *PostgresLogRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*NotificationLog, error) {
	return r.query(ctx, selectLogs+` WHERE timestamp BETWEEN $1 AND $2 ORDER BY timestamp DESC`, from, to)
}

func (r *PostgresLogRepository) query(ctx context.Context, query string, args ...any) ([]*NotificationLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*NotificationLog{}
	for rows.Next() {
		var l NotificationLog
		if err := rows.Scan(&l.ID, &l.Type, &l.Recipient, &l.Subject, &l.Message,
			&l.Status, &l.ErrorMessage, &l.Timestamp, &l.AlertID); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
