package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oslri/noticetrack/internal/domain"
)

// outcomeRepository implements OutcomeRepository over Postgres
type outcomeRepository struct {
	pool *pgxpool.Pool
}

// NewOutcomeRepository creates a new delivery outcome repository
func NewOutcomeRepository(pool *pgxpool.Pool) OutcomeRepository {
	return &outcomeRepository{pool: pool}
}

const outcomeColumns = `id, phone, sent_at, delivery_option_id, status, failure_reason, patron_id, notification_type_id, item_record_id, hold_request_id`

func (r *outcomeRepository) Create(ctx context.Context, outcome domain.DeliveryOutcome) (domain.DeliveryOutcome, error) {
	if outcome.ID == uuid.Nil {
		outcome.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_outcomes (`+outcomeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		outcome.ID, outcome.Phone, outcome.SentAt, outcome.DeliveryOptionID,
		outcome.Status, outcome.FailureReason, outcome.PatronID,
		outcome.NotificationTypeID, outcome.ItemRecordID, outcome.HoldRequestID,
	)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("failed to create delivery outcome: %w", err)
	}

	return outcome, nil
}

func (r *outcomeRepository) ListByPhoneBetween(ctx context.Context, phone string, from, to time.Time) ([]domain.DeliveryOutcome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outcomeColumns+`
		FROM delivery_outcomes
		WHERE phone = $1 AND sent_at >= $2 AND sent_at <= $3
		ORDER BY sent_at, id`, phone, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery outcomes by phone: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

func (r *outcomeRepository) ListFailed(ctx context.Context, window domain.DateWindow) ([]domain.DeliveryOutcome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outcomeColumns+`
		FROM delivery_outcomes
		WHERE status = $1 AND sent_at >= $2 AND sent_at <= $3
		ORDER BY sent_at, id`, domain.StatusFailed, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed delivery outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

func (r *outcomeRepository) ListMissingReferences(ctx context.Context) ([]domain.DeliveryOutcome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outcomeColumns+`
		FROM delivery_outcomes
		WHERE patron_id IS NOT NULL
		  AND (notification_type_id IS NULL OR item_record_id IS NULL OR hold_request_id IS NULL)
		ORDER BY sent_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes missing references: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

func (r *outcomeRepository) ApplyReferenceBackfill(ctx context.Context, assignments []ReferenceAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			UPDATE delivery_outcomes
			SET notification_type_id = COALESCE(notification_type_id, $2),
			    item_record_id       = COALESCE(item_record_id, $3),
			    hold_request_id      = COALESCE(hold_request_id, $4)
			WHERE id = $1
			  AND (
			    (notification_type_id IS NULL AND $2::int IS NOT NULL) OR
			    (item_record_id IS NULL AND $3::int IS NOT NULL) OR
			    (hold_request_id IS NULL AND $4::int IS NOT NULL)
			  )`, a.ID, a.NotificationTypeID, a.ItemRecordID, a.HoldRequestID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for range assignments {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("failed to apply reference backfill: %w", err)
		}
		affected += tag.RowsAffected()
	}

	return affected, nil
}

func collectOutcomes(rows pgx.Rows) ([]domain.DeliveryOutcome, error) {
	var outcomes []domain.DeliveryOutcome
	for rows.Next() {
		var o domain.DeliveryOutcome
		err := rows.Scan(
			&o.ID, &o.Phone, &o.SentAt, &o.DeliveryOptionID, &o.Status,
			&o.FailureReason, &o.PatronID, &o.NotificationTypeID,
			&o.ItemRecordID, &o.HoldRequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
