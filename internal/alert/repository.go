package alert

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository stores alerts. FindByID returns nil, nil for an unknown id.
type Repository interface {
	Save(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, id string) (*Alert, error)
	FindAll(ctx context.Context) ([]*Alert, error)
	FindBySensor(ctx context.Context, sensorID string) ([]*Alert, error)
	FindBySeverity(ctx context.Context, severity Severity) ([]*Alert, error)
	FindByType(ctx context.Context, t Type) ([]*Alert, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*Alert, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAlerts = `
	SELECT id, alert_type, severity, title, message, sensor_id, anomaly_id, timestamp,
		recipient_phone, recipient_email, sent_sms, sent_email, sms_status, email_status
	FROM alerts`

func (r *PostgresRepository) Save(ctx context.Context, a *Alert) error {
	query := `
		INSERT INTO alerts (id, alert_type, severity, title, message, sensor_id, anomaly_id, timestamp,
			recipient_phone, recipient_email, sent_sms, sent_email, sms_status, email_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			sent_sms = EXCLUDED.sent_sms,
			sent_email = EXCLUDED.sent_email,
			sms_status = EXCLUDED.sms_status,
			email_status = EXCLUDED.email_status
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.AlertType, a.Severity, a.Title, a.Message, a.SensorID, a.AnomalyID, a.Timestamp,
		a.RecipientPhone, a.RecipientEmail, a.SentSMS, a.SentEmail, a.SMSStatus, a.EmailStatus,
	)
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Alert, error) {
	row := r.db.QueryRowContext(ctx, selectAlerts+` WHERE id = $1`, id)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]*Alert, error) {
	return r.query(ctx, selectAlerts+` ORDER BY timestamp DESC`)
}

func (r *PostgresRepository) FindBySensor(ctx context.Context, sensorID string) ([]*Alert, error) {
	return r.query(ctx, selectAlerts+` WHERE sensor_id = $1 ORDER BY timestamp DESC`, sensorID)
}

func (r *PostgresRepository) FindBySeverity(ctx context.Context, severity Severity) ([]*Alert, error) {
	return r.query(ctx, selectAlerts+` WHERE severity = $1 ORDER BY timestamp DESC`, severity)
}

func (r *PostgresRepository) FindByType(ctx context.Context, t Type) ([]*Alert, error) {
	return r.query(ctx, selectAlerts+` WHERE alert_type = $1 ORDER BY timestamp DESC`, t)
}

func (r *PostgresRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*Alert, error) {
	return r.query(ctx, selectAlerts+` WHERE timestamp BETWEEN $1 AND $2 ORDER BY timestamp DESC`, from, to)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []*Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(s scanner) (*Alert, error) {
	var a Alert
	err := s.Scan(&a.ID, &a.AlertType, &a.Severity, &a.Title, &a.Message, &a.SensorID, &a.AnomalyID, &a.Timestamp,
		&a.RecipientPhone, &a.RecipientEmail, &a.SentSMS, &a.SentEmail, &a.SMSStatus, &a.EmailStatus)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
