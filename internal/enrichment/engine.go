// Package enrichment backfills classification fields that are missing at
// ingestion time, via date-bounded joins across the record stores. Every
// rule only ever writes a field from null to one deterministically-computed
// value, so runs are idempotent and safe under concurrent re-execution.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// Counts reports rows changed per backfill rule. A re-run over unchanged
// input yields all zeros.
type Counts struct {
	Channels   int64 `json:"channels"`
	Categories int64 `json:"categories"`
	References int64 `json:"references"`
}

// Total sums the per-rule counts.
func (c Counts) Total() int64 {
	return c.Channels + c.Categories + c.References
}

// Engine runs the three backfill rules.
type Engine struct {
	notices       repository.NoticeRepository
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	outcomes      repository.OutcomeRepository
	preferences   repository.PreferenceRepository
}

// NewEngine creates an enrichment engine over the given stores.
func NewEngine(
	notices repository.NoticeRepository,
	submissions repository.SubmissionRepository,
	verifications repository.VerificationRepository,
	outcomes repository.OutcomeRepository,
	preferences repository.PreferenceRepository,
) *Engine {
	return &Engine{
		notices:       notices,
		submissions:   submissions,
		verifications: verifications,
		outcomes:      outcomes,
		preferences:   preferences,
	}
}

// EnrichAll runs every backfill rule once and reports rows changed per rule.
func (e *Engine) EnrichAll(ctx context.Context) (Counts, error) {
	var counts Counts

	channels, err := e.backfillChannels(ctx)
	if err != nil {
		return counts, fmt.Errorf("channel backfill: %w", err)
	}
	counts.Channels = channels

	categories, err := e.backfillCategories(ctx)
	if err != nil {
		return counts, fmt.Errorf("category backfill: %w", err)
	}
	counts.Categories = categories

	references, err := e.backfillReferences(ctx)
	if err != nil {
		return counts, fmt.Errorf("failure-report backfill: %w", err)
	}
	counts.References = references

	return counts, nil
}

// backfillChannels fills the delivery channel on submission rows from the
// patron-preference snapshot, keyed by (patron barcode, same calendar day).
func (e *Engine) backfillChannels(ctx context.Context) (int64, error) {
	rows, err := e.submissions.ListMissingChannel(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	barcodes := make([]string, 0, len(rows))
	seen := make(map[string]bool)
	for _, rec := range rows {
		if !seen[rec.PatronBarcode] {
			seen[rec.PatronBarcode] = true
			barcodes = append(barcodes, rec.PatronBarcode)
		}
	}

	prefs, err := e.preferences.ListByBarcodes(ctx, barcodes)
	if err != nil {
		return 0, err
	}

	// First (earliest) preference row per patron-day wins.
	options := make(map[string]int)
	for _, p := range prefs {
		key := p.PatronBarcode + "|" + domain.DayKey(p.RecordedAt)
		if _, ok := options[key]; !ok {
			options[key] = p.DeliveryOptionID
		}
	}

	var assignments []repository.ChannelAssignment
	for _, rec := range rows {
		key := rec.PatronBarcode + "|" + domain.DayKey(rec.SubmittedAt)
		if option, ok := options[key]; ok {
			assignments = append(assignments, repository.ChannelAssignment{
				ID:               rec.ID,
				DeliveryOptionID: option,
			})
		}
	}

	return e.submissions.ApplyChannelBackfill(ctx, assignments)
}

// backfillCategories recovers the notification type on corroboration rows
// that arrived without one, by joining to overdue-family creation-log rows
// keyed by (patron id, item barcode, same calendar day). Only overdue-family
// types are copied; the overdue export is the only format that omits the
// type id.
func (e *Engine) backfillCategories(ctx context.Context) (int64, error) {
	rows, err := e.verifications.ListMissingCategory(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	window, ok := windowCoveringVerifications(rows)
	if !ok {
		return 0, nil
	}
	notices, err := e.notices.List(ctx, window)
	if err != nil {
		return 0, err
	}

	types := make(map[string]int)
	for _, n := range notices {
		if !domain.OverdueFamily(n.NotificationTypeID) || n.ItemBarcode == "" {
			continue
		}
		key := categoryKey(n.PatronID, n.ItemBarcode, n.NoticedAt)
		if _, seen := types[key]; !seen {
			types[key] = n.NotificationTypeID
		}
	}

	var assignments []repository.CategoryAssignment
	for _, rec := range rows {
		if rec.PatronID == nil || rec.ItemBarcode == "" {
			continue
		}
		key := categoryKey(*rec.PatronID, rec.ItemBarcode, rec.NoticeDate)
		if typeID, ok := types[key]; ok {
			assignments = append(assignments, repository.CategoryAssignment{
				ID:                 rec.ID,
				NotificationTypeID: typeID,
			})
		}
	}

	return e.verifications.ApplyCategoryBackfill(ctx, assignments)
}

// backfillReferences fills the Polaris reference columns on failure-report
// rows from corroboration rows keyed by (patron id, same calendar day).
func (e *Engine) backfillReferences(ctx context.Context) (int64, error) {
	rows, err := e.outcomes.ListMissingReferences(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	window, ok := windowCoveringOutcomes(rows)
	if !ok {
		return 0, nil
	}
	verifications, err := e.verifications.List(ctx, window)
	if err != nil {
		return 0, err
	}

	sources := make(map[string]domain.VerificationRecord)
	for _, v := range verifications {
		if v.PatronID == nil {
			continue
		}
		key := referenceKey(*v.PatronID, v.NoticeDate)
		if _, seen := sources[key]; !seen {
			sources[key] = v
		}
	}

	var assignments []repository.ReferenceAssignment
	for _, rec := range rows {
		if rec.PatronID == nil {
			continue
		}
		source, ok := sources[referenceKey(*rec.PatronID, rec.SentAt)]
		if !ok {
			continue
		}
		assignment := repository.ReferenceAssignment{
			ID:                 rec.ID,
			NotificationTypeID: source.NotificationTypeID,
			ItemRecordID:       source.ItemRecordID,
			HoldRequestID:      source.HoldRequestID,
		}
		if assignment.NotificationTypeID == nil && assignment.ItemRecordID == nil && assignment.HoldRequestID == nil {
			continue
		}
		assignments = append(assignments, assignment)
	}

	return e.outcomes.ApplyReferenceBackfill(ctx, assignments)
}

func categoryKey(patronID int, itemBarcode string, t time.Time) string {
	return fmt.Sprintf("%d|%s|%s", patronID, itemBarcode, domain.DayKey(t))
}

func referenceKey(patronID int, t time.Time) string {
	return fmt.Sprintf("%d|%s", patronID, domain.DayKey(t))
}

func windowCoveringVerifications(rows []domain.VerificationRecord) (domain.DateWindow, bool) {
	times := make([]time.Time, 0, len(rows))
	for _, rec := range rows {
		times = append(times, rec.NoticeDate)
	}
	return windowCovering(times)
}

func windowCoveringOutcomes(rows []domain.DeliveryOutcome) (domain.DateWindow, bool) {
	times := make([]time.Time, 0, len(rows))
	for _, rec := range rows {
		times = append(times, rec.SentAt)
	}
	return windowCovering(times)
}

// windowCovering expands a set of instants to whole calendar days so the
// join source query can over-fetch; the per-rule key checks re-apply the
// same-day restriction exactly.
func windowCovering(times []time.Time) (domain.DateWindow, bool) {
	if len(times) == 0 {
		return domain.DateWindow{}, false
	}
	min, max := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return domain.DateWindow{
		From: domain.Day(min),
		To:   domain.Day(max).AddDate(0, 0, 1),
	}, true
}
