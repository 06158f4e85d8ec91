// Package ingestion loads the vendor feed files into the record stores.
// Each upload is parsed row by row; rows that fail to parse are skipped
// and written to the import log, never inserted.
package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// Feed names accepted by the importer, one per vendor file kind.
const (
	FeedSubmissions   = "submissions"
	FeedVerifications = "verifications"
	FeedOutcomes      = "outcomes"
	FeedPreferences   = "preferences"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownFeed is returned when the feed name is not one of the
	// four vendor file kinds.
	ErrUnknownFeed = errors.New("unknown feed")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	timeLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
		"2006/01/02",
		"01/02/2006",
	}
)

// Service loads feed files into the record stores.
type Service struct {
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	outcomes      repository.OutcomeRepository
	preferences   repository.PreferenceRepository
	logs          repository.ImportLogRepository
}

// NewService creates a feed importer over the given stores.
func NewService(
	submissions repository.SubmissionRepository,
	verifications repository.VerificationRepository,
	outcomes repository.OutcomeRepository,
	preferences repository.PreferenceRepository,
	logs repository.ImportLogRepository,
) *Service {
	return &Service{
		submissions:   submissions,
		verifications: verifications,
		outcomes:      outcomes,
		preferences:   preferences,
		logs:          logs,
	}
}

// Request describes one feed file upload.
type Request struct {
	Feed     string
	FileName string
	Data     io.Reader
}

// Summary reports what one load did.
type Summary struct {
	Feed        string `json:"feed"`
	FileName    string `json:"file_name"`
	TotalRows   int    `json:"total_rows"`
	Inserted    int    `json:"inserted"`
	SkippedRows int    `json:"skipped_rows"`
}

// Ingest parses the uploaded file and inserts one store row per data row.
// Row-level parse failures are logged and skipped; only file-level problems
// (unreadable file, missing columns, unknown feed) fail the whole load.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	switch req.Feed {
	case FeedSubmissions, FeedVerifications, FeedOutcomes, FeedPreferences:
	default:
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownFeed, req.Feed)
	}

	summary := Summary{Feed: req.Feed, FileName: req.FileName}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read upload: %w", err)
	}

	header, rows, err := parseTable(req.FileName, payload)
	if err != nil {
		return Summary{}, err
	}

	cols := columnIndex(header)
	summary.TotalRows = len(rows)

	for i, row := range rows {
		rowNumber := i + 2 // 1-based, after the header row
		if err := s.insertRow(ctx, req, cols, row); err != nil {
			summary.SkippedRows++
			s.logRowError(ctx, req, rowNumber, err)
			continue
		}
		summary.Inserted++
	}

	return summary, nil
}

func (s *Service) insertRow(ctx context.Context, req Request, cols map[string]int, row []string) error {
	switch req.Feed {
	case FeedSubmissions:
		rec, err := parseSubmission(cols, row, req.FileName)
		if err != nil {
			return err
		}
		_, err = s.submissions.Create(ctx, rec)
		return err
	case FeedVerifications:
		rec, err := parseVerification(cols, row, req.FileName)
		if err != nil {
			return err
		}
		_, err = s.verifications.Create(ctx, rec)
		return err
	case FeedOutcomes:
		rec, err := parseOutcome(cols, row)
		if err != nil {
			return err
		}
		_, err = s.outcomes.Create(ctx, rec)
		return err
	case FeedPreferences:
		rec, err := parsePreference(cols, row)
		if err != nil {
			return err
		}
		_, err = s.preferences.Create(ctx, rec)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFeed, req.Feed)
	}
}

func (s *Service) logRowError(ctx context.Context, req Request, rowNumber int, rowErr error) {
	if s.logs == nil {
		return
	}
	entry := domain.ImportLogEntry{
		Feed:         req.Feed,
		FileName:     req.FileName,
		RowNumber:    &rowNumber,
		ErrorMessage: rowErr.Error(),
	}
	_ = s.logs.Record(ctx, entry)
}

func parseSubmission(cols map[string]int, row []string, fileName string) (domain.SubmissionRecord, error) {
	rec := domain.SubmissionRecord{SourceFile: fileName}

	barcode, err := requiredField(cols, row, "patron_barcode")
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	rec.PatronBarcode = barcode
	rec.Phone = optionalField(cols, row, "phone")

	category, err := requiredField(cols, row, "category")
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	rec.Category = strings.ToLower(category)

	rec.SubmittedAt, err = requiredTime(cols, row, "submitted_at")
	if err != nil {
		return domain.SubmissionRecord{}, err
	}

	rec.DeliveryOptionID, err = optionalInt(cols, row, "delivery_option_id")
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	return rec, nil
}

func parseVerification(cols map[string]int, row []string, fileName string) (domain.VerificationRecord, error) {
	rec := domain.VerificationRecord{SourceFile: fileName}

	barcode, err := requiredField(cols, row, "patron_barcode")
	if err != nil {
		return domain.VerificationRecord{}, err
	}
	rec.PatronBarcode = barcode
	rec.ItemBarcode = optionalField(cols, row, "item_barcode")
	rec.Phone = optionalField(cols, row, "phone")

	rec.NoticeDate, err = requiredTime(cols, row, "notice_date")
	if err != nil {
		return domain.VerificationRecord{}, err
	}

	rec.DeliveryOptionID, err = requiredInt(cols, row, "delivery_option_id")
	if err != nil {
		return domain.VerificationRecord{}, err
	}

	if rec.PatronID, err = optionalInt(cols, row, "patron_id"); err != nil {
		return domain.VerificationRecord{}, err
	}
	if rec.ItemRecordID, err = optionalInt(cols, row, "item_record_id"); err != nil {
		return domain.VerificationRecord{}, err
	}
	if rec.NotificationTypeID, err = optionalInt(cols, row, "notification_type_id"); err != nil {
		return domain.VerificationRecord{}, err
	}
	if rec.HoldRequestID, err = optionalInt(cols, row, "hold_request_id"); err != nil {
		return domain.VerificationRecord{}, err
	}
	return rec, nil
}

func parseOutcome(cols map[string]int, row []string) (domain.DeliveryOutcome, error) {
	rec := domain.DeliveryOutcome{}

	phone, err := requiredField(cols, row, "phone")
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}
	rec.Phone = phone

	rec.SentAt, err = requiredTime(cols, row, "sent_at")
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}

	rec.DeliveryOptionID, err = requiredInt(cols, row, "delivery_option_id")
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}

	status, err := requiredField(cols, row, "status")
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}
	rec.Status = status

	if reason := optionalField(cols, row, "failure_reason"); reason != "" {
		rec.FailureReason = &reason
	}
	return rec, nil
}

func parsePreference(cols map[string]int, row []string) (domain.PatronPreference, error) {
	rec := domain.PatronPreference{}

	barcode, err := requiredField(cols, row, "patron_barcode")
	if err != nil {
		return domain.PatronPreference{}, err
	}
	rec.PatronBarcode = barcode

	rec.DeliveryOptionID, err = requiredInt(cols, row, "delivery_option_id")
	if err != nil {
		return domain.PatronPreference{}, err
	}

	rec.RecordedAt, err = requiredTime(cols, row, "recorded_at")
	if err != nil {
		return domain.PatronPreference{}, err
	}
	return rec, nil
}

func parseTable(fileName string, payload []byte) ([]string, [][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt", "":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]string, [][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return splitHeader(records)
}

func parseExcel(payload []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return splitHeader(rows)
}

func splitHeader(records [][]string) ([]string, [][]string, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("file has no header row")
	}
	return records[0], records[1:], nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		if key == "" {
			continue
		}
		if _, exists := cols[key]; !exists {
			cols[key] = i
		}
	}
	return cols
}

func fieldAt(cols map[string]int, row []string, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

func requiredField(cols map[string]int, row []string, name string) (string, error) {
	value, ok := fieldAt(cols, row, name)
	if !ok || value == "" {
		return "", fmt.Errorf("missing required column %q", name)
	}
	return value, nil
}

func optionalField(cols map[string]int, row []string, name string) string {
	value, _ := fieldAt(cols, row, name)
	return value
}

func requiredInt(cols map[string]int, row []string, name string) (int, error) {
	raw, err := requiredField(cols, row, name)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return value, nil
}

func optionalInt(cols map[string]int, row []string, name string) (*int, error) {
	raw := optionalField(cols, row, name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return &value, nil
}

func requiredTime(cols map[string]int, row []string, name string) (time.Time, error) {
	raw, err := requiredField(cols, row, name)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %q: %w", name, err)
	}
	return ts, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}
