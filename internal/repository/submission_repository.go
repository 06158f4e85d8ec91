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

// submissionRepository implements SubmissionRepository over Postgres
type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

const submissionColumns = `id, patron_barcode, phone, category, submitted_at, delivery_option_id, source_file`

func (r *submissionRepository) Create(ctx context.Context, record domain.SubmissionRecord) (domain.SubmissionRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO submission_records (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.PatronBarcode, record.Phone, record.Category,
		record.SubmittedAt, record.DeliveryOptionID, record.SourceFile,
	)
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("failed to create submission record: %w", err)
	}

	return record, nil
}

func (r *submissionRepository) CandidatesByPatronDay(ctx context.Context, patronBarcode string, day time.Time) ([]domain.SubmissionRecord, error) {
	start := domain.Day(day)
	end := start.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submission_records
		WHERE patron_barcode = $1 AND submitted_at >= $2 AND submitted_at < $3
		ORDER BY submitted_at, id`, patronBarcode, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission candidates: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func (r *submissionRepository) List(ctx context.Context, window domain.DateWindow) ([]domain.SubmissionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submission_records
		WHERE submitted_at >= $1 AND submitted_at <= $2
		ORDER BY submitted_at, id`, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission records: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func (r *submissionRepository) ListMissingChannel(ctx context.Context) ([]domain.SubmissionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submission_records
		WHERE delivery_option_id IS NULL
		ORDER BY submitted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions missing channel: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func (r *submissionRepository) ApplyChannelBackfill(ctx context.Context, assignments []ChannelAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			UPDATE submission_records
			SET delivery_option_id = $2
			WHERE id = $1 AND delivery_option_id IS NULL`, a.ID, a.DeliveryOptionID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for range assignments {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("failed to apply channel backfill: %w", err)
		}
		affected += tag.RowsAffected()
	}

	return affected, nil
}

func collectSubmissions(rows pgx.Rows) ([]domain.SubmissionRecord, error) {
	var records []domain.SubmissionRecord
	for rows.Next() {
		var rec domain.SubmissionRecord
		err := rows.Scan(
			&rec.ID, &rec.PatronBarcode, &rec.Phone, &rec.Category,
			&rec.SubmittedAt, &rec.DeliveryOptionID, &rec.SourceFile,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
