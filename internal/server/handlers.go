// Package server exposes the read-side projections to the reporting layer:
// per-notice verification, reconciliation buckets, failure rollups, and the
// workbook download.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/oslri/noticetrack/internal/correlation"
	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/enrichment"
	"github.com/oslri/noticetrack/internal/metrics"
	"github.com/oslri/noticetrack/internal/middleware"
	"github.com/oslri/noticetrack/internal/reconcile"
	"github.com/oslri/noticetrack/internal/repository"
	"github.com/oslri/noticetrack/internal/stats"
)

// Server wires the engines behind HTTP handlers.
type Server struct {
	notices    repository.NoticeRepository
	engine     *correlation.Engine
	detector   *reconcile.Detector
	aggregator *stats.Aggregator
	enricher   *enrichment.Engine
	importer   http.Handler
	exporter   http.Handler
	origins    []string
}

// New creates the HTTP server surface.
func New(
	notices repository.NoticeRepository,
	engine *correlation.Engine,
	detector *reconcile.Detector,
	aggregator *stats.Aggregator,
	enricher *enrichment.Engine,
	importer http.Handler,
	exporter http.Handler,
	allowedOrigins []string,
) *Server {
	return &Server{
		notices:    notices,
		engine:     engine,
		detector:   detector,
		aggregator: aggregator,
		enricher:   enricher,
		importer:   importer,
		exporter:   exporter,
		origins:    allowedOrigins,
	}
}

// Handler builds the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/notices/{id}/verification", s.handleVerification)
	mux.HandleFunc("GET /api/reconciliation/mismatches", s.handleMismatches)
	mux.HandleFunc("GET /api/reconciliation/failures", s.handleFailures)
	if s.enricher != nil {
		mux.HandleFunc("POST /api/enrichment/run", s.handleEnrich)
	}
	if s.importer != nil {
		mux.Handle("POST /api/imports", s.importer)
	}
	if s.exporter != nil {
		mux.Handle("GET /api/reconciliation/report.xlsx", s.exporter)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	return middleware.LoggingMiddleware(corsHandler.Handler(mux))
}

// verificationResponse is the wire shape handed to the reporting layer.
type verificationResponse struct {
	Verification struct {
		Created       bool                 `json:"created"`
		Submitted     bool                 `json:"submitted"`
		Verified      bool                 `json:"verified"`
		Delivered     bool                 `json:"delivered"`
		OverallStatus domain.OverallStatus `json:"overall_status"`
	} `json:"verification"`
	Timestamps struct {
		CreatedAt   *time.Time `json:"created_at"`
		SubmittedAt *time.Time `json:"submitted_at"`
		VerifiedAt  *time.Time `json:"verified_at"`
		DeliveredAt *time.Time `json:"delivered_at"`
	} `json:"timestamps"`
	Status struct {
		DeliveryStatus string `json:"delivery_status"`
		FailureReason  string `json:"failure_reason"`
	} `json:"status"`
	Files struct {
		SubmissionFile   string `json:"submission_file"`
		VerificationFile string `json:"verification_file"`
	} `json:"files"`
	Timeline []domain.TimelineEvent `json:"timeline"`
}

func toVerificationResponse(result domain.VerificationResult) verificationResponse {
	var resp verificationResponse
	resp.Verification.Created = result.Created
	resp.Verification.Submitted = result.Submitted
	resp.Verification.Verified = result.Verified
	resp.Verification.Delivered = result.Delivered
	resp.Verification.OverallStatus = result.OverallStatus
	resp.Timestamps.CreatedAt = result.CreatedAt
	resp.Timestamps.SubmittedAt = result.SubmittedAt
	resp.Timestamps.VerifiedAt = result.VerifiedAt
	resp.Timestamps.DeliveredAt = result.DeliveredAt
	resp.Status.DeliveryStatus = result.DeliveryStatus
	resp.Status.FailureReason = result.FailureReason
	resp.Files.SubmissionFile = result.SubmissionFile
	resp.Files.VerificationFile = result.VerificationFile
	resp.Timeline = result.Timeline
	if resp.Timeline == nil {
		resp.Timeline = []domain.TimelineEvent{}
	}
	return resp
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.VerifyRequestsTotal.Inc()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid notice id", http.StatusBadRequest)
		return
	}

	notice, err := s.notices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "notice not found", http.StatusNotFound)
			return
		}
		log.Printf("Failed to load notice %s: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	result, err := s.engine.Verify(r.Context(), notice)
	if err != nil {
		log.Printf("Failed to verify notice %s: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.VerifyRequestDuration.Observe(time.Since(start).Seconds())
	writeJSON(w, toVerificationResponse(result))
}

func (s *Server) handleMismatches(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	report, err := s.detector.Mismatches(r.Context(), window)
	if err != nil {
		log.Printf("Reconciliation pass failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.MismatchScanDuration.Observe(time.Since(start).Seconds())

	writeJSON(w, report)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var slices []stats.FailureSlice
	switch by := r.URL.Query().Get("by"); by {
	case "", "reason":
		slices, err = s.aggregator.FailuresByReason(r.Context(), window)
	case "type":
		slices, err = s.aggregator.FailuresByType(r.Context(), window)
	default:
		http.Error(w, fmt.Sprintf("unknown rollup %q", by), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("Failure rollup failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if slices == nil {
		slices = []stats.FailureSlice{}
	}

	writeJSON(w, slices)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	counts, err := s.enricher.EnrichAll(r.Context())
	if err != nil {
		log.Printf("Enrichment run failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.EnrichmentRunsTotal.Inc()
	metrics.EnrichmentRowsTotal.WithLabelValues("channels").Add(float64(counts.Channels))
	metrics.EnrichmentRowsTotal.WithLabelValues("categories").Add(float64(counts.Categories))
	metrics.EnrichmentRowsTotal.WithLabelValues("references").Add(float64(counts.References))

	writeJSON(w, counts)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// windowFromQuery reads from/to date params, defaulting to the last seven
// days.
func windowFromQuery(r *http.Request) (domain.DateWindow, error) {
	now := time.Now()
	window := domain.DateWindow{From: domain.Day(now.AddDate(0, 0, -7)), To: now}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.DateWindow{}, fmt.Errorf("invalid from date %q", raw)
		}
		window.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.DateWindow{}, fmt.Errorf("invalid to date %q", raw)
		}
		window.To = to.AddDate(0, 0, 1).Add(-time.Second)
	}
	if window.To.Before(window.From) {
		return domain.DateWindow{}, fmt.Errorf("to date is before from date")
	}
	return window, nil
}
