package repository

import (
	"context"
	"database/sql"
	"time"

	"eboto/internal/domain/outbox"

	"github.com/google/uuid"
)

// maxOutboxRetries bounds how often the processor retries one event before
// it is parked as FAILED.
const maxOutboxRetries = 10

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, event *outbox.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO outbox_events (id, event_type, aggregate_type, aggregate_id, payload, status, retry_count, error, created_at, updated_at, processed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `,
		event.ID,
		event.EventType,
		event.AggregateType,
		event.AggregateID,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.Error,
		event.CreatedAt,
		event.UpdatedAt,
		event.ProcessedAt,
	)
	return err
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var events []outbox.OutboxEvent
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, event_type, aggregate_type, aggregate_id, payload, status, retry_count, error, created_at, updated_at, processed_at
        FROM outbox_events
        WHERE status = $1 AND retry_count < $2
        ORDER BY created_at ASC
        LIMIT $3
    `, outbox.StatusPending, maxOutboxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event outbox.OutboxEvent
		var processedAt sql.NullTime
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.AggregateType,
			&event.AggregateID,
			&event.Payload,
			&event.Status,
			&event.RetryCount,
			&event.Error,
			&event.CreatedAt,
			&event.UpdatedAt,
			&processedAt,
		); err != nil {
			return nil, err
		}
		event.ProcessedAt = timePtr(processedAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET status = $1, processed_at = $2, updated_at = $3
        WHERE id = $4
    `, outbox.StatusCompleted, &now, now, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET status = $1, error = $2, updated_at = $3
        WHERE id = $4
    `, outbox.StatusFailed, errorMsg, time.Now(), id)
	return err
}

func (r *outboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET retry_count = retry_count + 1, error = $2, updated_at = $3
        WHERE id = $1
    `, id, errorMsg, time.Now())
	return err
}

func (r *outboxRepository) CountByType(ctx context.Context, aggregateID, eventType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
        SELECT count(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2
    `, aggregateID, eventType).Scan(&n)
	return n, err
}
