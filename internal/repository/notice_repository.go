package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oslri/noticetrack/internal/domain"
)

// noticeRepository implements NoticeRepository over Postgres
type noticeRepository struct {
	pool *pgxpool.Pool
}

// NewNoticeRepository creates a new notice repository
func NewNoticeRepository(pool *pgxpool.Pool) NoticeRepository {
	return &noticeRepository{pool: pool}
}

const noticeColumns = `id, patron_id, patron_barcode, phone, email, item_barcode, noticed_at, notification_type_id, delivery_option_id, raw_status_code`

func (r *noticeRepository) Create(ctx context.Context, notice domain.Notice) (domain.Notice, error) {
	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO notices (`+noticeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		notice.ID, notice.PatronID, notice.PatronBarcode, notice.Phone, notice.Email,
		notice.ItemBarcode, notice.NoticedAt, notice.NotificationTypeID,
		notice.DeliveryOptionID, notice.RawStatusCode,
	)
	if err != nil {
		return domain.Notice{}, fmt.Errorf("failed to create notice: %w", err)
	}

	return notice, nil
}

func (r *noticeRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Notice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+noticeColumns+`
		FROM notices
		WHERE id = $1`, id)

	notice, err := scanNotice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Notice{}, ErrNotFound
		}
		return domain.Notice{}, fmt.Errorf("failed to get notice: %w", err)
	}

	return notice, nil
}

func (r *noticeRepository) List(ctx context.Context, window domain.DateWindow) ([]domain.Notice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+noticeColumns+`
		FROM notices
		WHERE noticed_at >= $1 AND noticed_at <= $2
		ORDER BY noticed_at, id`, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	defer rows.Close()

	var notices []domain.Notice
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notice: %w", err)
		}
		notices = append(notices, notice)
	}

	return notices, rows.Err()
}

func scanNotice(row pgx.Row) (domain.Notice, error) {
	var n domain.Notice
	err := row.Scan(
		&n.ID, &n.PatronID, &n.PatronBarcode, &n.Phone, &n.Email,
		&n.ItemBarcode, &n.NoticedAt, &n.NotificationTypeID,
		&n.DeliveryOptionID, &n.RawStatusCode,
	)
	return n, err
}
