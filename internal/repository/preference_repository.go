package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oslri/noticetrack/internal/domain"
)

// preferenceRepository implements PreferenceRepository over Postgres
type preferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository creates a new patron preference repository
func NewPreferenceRepository(pool *pgxpool.Pool) PreferenceRepository {
	return &preferenceRepository{pool: pool}
}

func (r *preferenceRepository) Create(ctx context.Context, pref domain.PatronPreference) (domain.PatronPreference, error) {
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patron_preferences (id, patron_barcode, delivery_option_id, recorded_at)
		VALUES ($1, $2, $3, $4)`,
		pref.ID, pref.PatronBarcode, pref.DeliveryOptionID, pref.RecordedAt,
	)
	if err != nil {
		return domain.PatronPreference{}, fmt.Errorf("failed to create patron preference: %w", err)
	}

	return pref, nil
}

func (r *preferenceRepository) ListByBarcodes(ctx context.Context, barcodes []string) ([]domain.PatronPreference, error) {
	if len(barcodes) == 0 {
		return []domain.PatronPreference{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, patron_barcode, delivery_option_id, recorded_at
		FROM patron_preferences
		WHERE patron_barcode = ANY($1)
		ORDER BY recorded_at, id`, barcodes)
	if err != nil {
		return nil, fmt.Errorf("failed to list patron preferences: %w", err)
	}
	defer rows.Close()

	var prefs []domain.PatronPreference
	for rows.Next() {
		var p domain.PatronPreference
		if err := rows.Scan(&p.ID, &p.PatronBarcode, &p.DeliveryOptionID, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patron preference: %w", err)
		}
		prefs = append(prefs, p)
	}

	return prefs, rows.Err()
}
