// Package testutil provides in-memory implementations of the repository
// interfaces for engine tests. The fakes mirror the Postgres repositories'
// observable behavior: deterministic ordering on every candidate query and
// null-only conditional backfill updates.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// Stores bundles one in-memory instance of every record store.
type Stores struct {
	Notices       *NoticeStore
	Submissions   *SubmissionStore
	Verifications *VerificationStore
	Outcomes      *OutcomeStore
	Preferences   *PreferenceStore
	ImportLogs    *ImportLogStore
}

// NewStores creates an empty set of in-memory stores.
func NewStores() *Stores {
	return &Stores{
		Notices:       &NoticeStore{},
		Submissions:   &SubmissionStore{},
		Verifications: &VerificationStore{},
		Outcomes:      &OutcomeStore{},
		Preferences:   &PreferenceStore{},
		ImportLogs:    &ImportLogStore{},
	}
}

// NoticeStore is an in-memory NoticeRepository.
type NoticeStore struct {
	mu   sync.Mutex
	rows []domain.Notice
}

func (s *NoticeStore) Create(_ context.Context, notice domain.Notice) (domain.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}
	s.rows = append(s.rows, notice)
	return notice, nil
}

func (s *NoticeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.rows {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Notice{}, repository.ErrNotFound
}

func (s *NoticeStore) List(_ context.Context, window domain.DateWindow) ([]domain.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notice
	for _, n := range s.rows {
		if window.Contains(n.NoticedAt) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NoticedAt.Equal(out[j].NoticedAt) {
			return out[i].NoticedAt.Before(out[j].NoticedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// SubmissionStore is an in-memory SubmissionRepository.
type SubmissionStore struct {
	mu   sync.Mutex
	rows []domain.SubmissionRecord
}

func (s *SubmissionStore) Create(_ context.Context, record domain.SubmissionRecord) (domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.rows = append(s.rows, record)
	return record, nil
}

func (s *SubmissionStore) CandidatesByPatronDay(_ context.Context, patronBarcode string, day time.Time) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubmissionRecord
	for _, rec := range s.rows {
		if rec.PatronBarcode == patronBarcode && domain.SameDay(rec.SubmittedAt, day) {
			out = append(out, rec)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (s *SubmissionStore) List(_ context.Context, window domain.DateWindow) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubmissionRecord
	for _, rec := range s.rows {
		if window.Contains(rec.SubmittedAt) {
			out = append(out, rec)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (s *SubmissionStore) ListMissingChannel(_ context.Context) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubmissionRecord
	for _, rec := range s.rows {
		if rec.DeliveryOptionID == nil {
			out = append(out, rec)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (s *SubmissionStore) ApplyChannelBackfill(_ context.Context, assignments []repository.ChannelAssignment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, a := range assignments {
		for i := range s.rows {
			if s.rows[i].ID == a.ID && s.rows[i].DeliveryOptionID == nil {
				option := a.DeliveryOptionID
				s.rows[i].DeliveryOptionID = &option
				affected++
			}
		}
	}
	return affected, nil
}

// Rows returns a copy of all rows for state assertions.
func (s *SubmissionStore) Rows() []domain.SubmissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SubmissionRecord, len(s.rows))
	copy(out, s.rows)
	return out
}

func sortSubmissions(recs []domain.SubmissionRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].SubmittedAt.Equal(recs[j].SubmittedAt) {
			return recs[i].SubmittedAt.Before(recs[j].SubmittedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}

// VerificationStore is an in-memory VerificationRepository.
type VerificationStore struct {
	mu   sync.Mutex
	rows []domain.VerificationRecord
}

func (s *VerificationStore) Create(_ context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.rows = append(s.rows, record)
	return record, nil
}

func (s *VerificationStore) CandidatesByPatronDay(_ context.Context, patronBarcode string, day time.Time) ([]domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationRecord
	for _, rec := range s.rows {
		if rec.PatronBarcode == patronBarcode && domain.SameDay(rec.NoticeDate, day) {
			out = append(out, rec)
		}
	}
	sortVerifications(out)
	return out, nil
}

func (s *VerificationStore) List(_ context.Context, window domain.DateWindow) ([]domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationRecord
	for _, rec := range s.rows {
		if window.Contains(rec.NoticeDate) {
			out = append(out, rec)
		}
	}
	sortVerifications(out)
	return out, nil
}

func (s *VerificationStore) ListMissingCategory(_ context.Context) ([]domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationRecord
	for _, rec := range s.rows {
		if rec.NotificationTypeID == nil {
			out = append(out, rec)
		}
	}
	sortVerifications(out)
	return out, nil
}

func (s *VerificationStore) ApplyCategoryBackfill(_ context.Context, assignments []repository.CategoryAssignment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, a := range assignments {
		for i := range s.rows {
			if s.rows[i].ID == a.ID && s.rows[i].NotificationTypeID == nil {
				typeID := a.NotificationTypeID
				s.rows[i].NotificationTypeID = &typeID
				affected++
			}
		}
	}
	return affected, nil
}

// Rows returns a copy of all rows for state assertions.
func (s *VerificationStore) Rows() []domain.VerificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.VerificationRecord, len(s.rows))
	copy(out, s.rows)
	return out
}

func sortVerifications(recs []domain.VerificationRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].NoticeDate.Equal(recs[j].NoticeDate) {
			return recs[i].NoticeDate.Before(recs[j].NoticeDate)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}

// OutcomeStore is an in-memory OutcomeRepository.
type OutcomeStore struct {
	mu   sync.Mutex
	rows []domain.DeliveryOutcome
}

func (s *OutcomeStore) Create(_ context.Context, outcome domain.DeliveryOutcome) (domain.DeliveryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome.ID == uuid.Nil {
		outcome.ID = uuid.New()
	}
	s.rows = append(s.rows, outcome)
	return outcome, nil
}

func (s *OutcomeStore) ListByPhoneBetween(_ context.Context, phone string, from, to time.Time) ([]domain.DeliveryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeliveryOutcome
	for _, o := range s.rows {
		if o.Phone == phone && !o.SentAt.Before(from) && !o.SentAt.After(to) {
			out = append(out, o)
		}
	}
	sortOutcomes(out)
	return out, nil
}

func (s *OutcomeStore) ListFailed(_ context.Context, window domain.DateWindow) ([]domain.DeliveryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeliveryOutcome
	for _, o := range s.rows {
		if o.Failed() && window.Contains(o.SentAt) {
			out = append(out, o)
		}
	}
	sortOutcomes(out)
	return out, nil
}

func (s *OutcomeStore) ListMissingReferences(_ context.Context) ([]domain.DeliveryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeliveryOutcome
	for _, o := range s.rows {
		if o.PatronID != nil && (o.NotificationTypeID == nil || o.ItemRecordID == nil || o.HoldRequestID == nil) {
			out = append(out, o)
		}
	}
	sortOutcomes(out)
	return out, nil
}

func (s *OutcomeStore) ApplyReferenceBackfill(_ context.Context, assignments []repository.ReferenceAssignment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, a := range assignments {
		for i := range s.rows {
			if s.rows[i].ID != a.ID {
				continue
			}
			changed := false
			if s.rows[i].NotificationTypeID == nil && a.NotificationTypeID != nil {
				v := *a.NotificationTypeID
				s.rows[i].NotificationTypeID = &v
				changed = true
			}
			if s.rows[i].ItemRecordID == nil && a.ItemRecordID != nil {
				v := *a.ItemRecordID
				s.rows[i].ItemRecordID = &v
				changed = true
			}
			if s.rows[i].HoldRequestID == nil && a.HoldRequestID != nil {
				v := *a.HoldRequestID
				s.rows[i].HoldRequestID = &v
				changed = true
			}
			if changed {
				affected++
			}
		}
	}
	return affected, nil
}

// Rows returns a copy of all rows for state assertions.
func (s *OutcomeStore) Rows() []domain.DeliveryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeliveryOutcome, len(s.rows))
	copy(out, s.rows)
	return out
}

func sortOutcomes(outcomes []domain.DeliveryOutcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		if !outcomes[i].SentAt.Equal(outcomes[j].SentAt) {
			return outcomes[i].SentAt.Before(outcomes[j].SentAt)
		}
		return outcomes[i].ID.String() < outcomes[j].ID.String()
	})
}

// PreferenceStore is an in-memory PreferenceRepository.
type PreferenceStore struct {
	mu   sync.Mutex
	rows []domain.PatronPreference
}

func (s *PreferenceStore) Create(_ context.Context, pref domain.PatronPreference) (domain.PatronPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	s.rows = append(s.rows, pref)
	return pref, nil
}

func (s *PreferenceStore) ListByBarcodes(_ context.Context, barcodes []string) ([]domain.PatronPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(barcodes))
	for _, b := range barcodes {
		wanted[b] = true
	}
	var out []domain.PatronPreference
	for _, p := range s.rows {
		if wanted[p.PatronBarcode] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ImportLogStore is an in-memory ImportLogRepository.
type ImportLogStore struct {
	mu   sync.Mutex
	rows []domain.ImportLogEntry
}

func (s *ImportLogStore) Record(_ context.Context, entry domain.ImportLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.rows = append(s.rows, entry)
	return nil
}

func (s *ImportLogStore) List(_ context.Context, feed, fileName string, limit, offset int) ([]domain.ImportLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 200
	}
	var out []domain.ImportLogEntry
	for _, e := range s.rows {
		if e.Feed == feed && e.FileName == fileName {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rows returns a copy of all rows for state assertions.
func (s *ImportLogStore) Rows() []domain.ImportLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ImportLogEntry, len(s.rows))
	copy(out, s.rows)
	return out
}
