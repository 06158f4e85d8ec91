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

// verificationRepository implements VerificationRepository over Postgres
type verificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepository{pool: pool}
}

const verificationColumns = `id, patron_barcode, patron_id, item_barcode, item_record_id, phone, notice_date, delivery_option_id, notification_type_id, hold_request_id, source_file`

func (r *verificationRepository) Create(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_records (`+verificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.PatronBarcode, record.PatronID, record.ItemBarcode,
		record.ItemRecordID, record.Phone, record.NoticeDate, record.DeliveryOptionID,
		record.NotificationTypeID, record.HoldRequestID, record.SourceFile,
	)
	if err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("failed to create verification record: %w", err)
	}

	return record, nil
}

func (r *verificationRepository) CandidatesByPatronDay(ctx context.Context, patronBarcode string, day time.Time) ([]domain.VerificationRecord, error) {
	start := domain.Day(day)
	end := start.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, `
		SELECT `+verificationColumns+`
		FROM verification_records
		WHERE patron_barcode = $1 AND notice_date >= $2 AND notice_date < $3
		ORDER BY notice_date, id`, patronBarcode, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification candidates: %w", err)
	}
	defer rows.Close()

	return collectVerifications(rows)
}

func (r *verificationRepository) List(ctx context.Context, window domain.DateWindow) ([]domain.VerificationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+verificationColumns+`
		FROM verification_records
		WHERE notice_date >= $1 AND notice_date <= $2
		ORDER BY notice_date, id`, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification records: %w", err)
	}
	defer rows.Close()

	return collectVerifications(rows)
}

func (r *verificationRepository) ListMissingCategory(ctx context.Context) ([]domain.VerificationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+verificationColumns+`
		FROM verification_records
		WHERE notification_type_id IS NULL
		ORDER BY notice_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications missing category: %w", err)
	}
	defer rows.Close()

	return collectVerifications(rows)
}

func (r *verificationRepository) ApplyCategoryBackfill(ctx context.Context, assignments []CategoryAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			UPDATE verification_records
			SET notification_type_id = $2
			WHERE id = $1 AND notification_type_id IS NULL`, a.ID, a.NotificationTypeID)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for range assignments {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("failed to apply category backfill: %w", err)
		}
		affected += tag.RowsAffected()
	}

	return affected, nil
}

func collectVerifications(rows pgx.Rows) ([]domain.VerificationRecord, error) {
	var records []domain.VerificationRecord
	for rows.Next() {
		var rec domain.VerificationRecord
		err := rows.Scan(
			&rec.ID, &rec.PatronBarcode, &rec.PatronID, &rec.ItemBarcode,
			&rec.ItemRecordID, &rec.Phone, &rec.NoticeDate, &rec.DeliveryOptionID,
			&rec.NotificationTypeID, &rec.HoldRequestID, &rec.SourceFile,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
