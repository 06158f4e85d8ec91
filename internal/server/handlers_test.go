package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oslri/noticetrack/internal/correlation"
	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/reconcile"
	"github.com/oslri/noticetrack/internal/stats"
	"github.com/oslri/noticetrack/internal/testutil"
)

func newTestServer(stores *testutil.Stores) *Server {
	engine := correlation.NewEngine(
		stores.Submissions, stores.Verifications, stores.Outcomes,
		domain.DefaultLookups(), domain.DefaultWindowPolicy(), nil,
	)
	detector := reconcile.NewDetector(
		stores.Submissions, stores.Verifications, stores.Outcomes,
		domain.DefaultWindowPolicy(),
	)
	aggregator := stats.NewAggregator(stores.Submissions, stores.Outcomes)
	return New(stores.Notices, engine, detector, aggregator, nil, nil, nil, []string{"*"})
}

func TestVerificationEndpointShape(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	notice, err := stores.Notices.Create(ctx, domain.Notice{
		PatronID:           1021,
		PatronBarcode:      "21234001234567",
		Phone:              "5035551234",
		NoticedAt:          time.Date(2025, 11, 9, 14, 23, 15, 0, time.UTC),
		NotificationTypeID: domain.NotificationHold,
		DeliveryOptionID:   domain.ChannelVoice,
	})
	if err != nil {
		t.Fatalf("seeding notice: %v", err)
	}

	handler := newTestServer(stores).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notices/"+notice.ID.String()+"/verification", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for _, key := range []string{"verification", "timestamps", "status", "files", "timeline"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("response missing %q group", key)
		}
	}

	var verification struct {
		Created       bool   `json:"created"`
		OverallStatus string `json:"overall_status"`
	}
	if err := json.Unmarshal(payload["verification"], &verification); err != nil {
		t.Fatalf("verification group is not an object: %v", err)
	}
	if !verification.Created {
		t.Errorf("created should be true")
	}
	if verification.OverallStatus != string(domain.StatusPending) {
		t.Errorf("overall status = %q, want pending", verification.OverallStatus)
	}
}

func TestVerificationEndpointUnknownNotice(t *testing.T) {
	handler := newTestServer(testutil.NewStores()).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notices/"+uuid.NewString()+"/verification", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMismatchesEndpoint(t *testing.T) {
	handler := newTestServer(testutil.NewStores()).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/mismatches?from=2025-11-01&to=2025-11-08", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var report reconcile.MismatchReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("response is not a mismatch report: %v", err)
	}
}

func TestMismatchesEndpointRejectsBadDates(t *testing.T) {
	handler := newTestServer(testutil.NewStores()).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/mismatches?from=yesterday", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFailuresEndpointRejectsUnknownRollup(t *testing.T) {
	handler := newTestServer(testutil.NewStores()).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reconciliation/failures?by=severity", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(testutil.NewStores()).Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
