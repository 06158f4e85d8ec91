package export

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oslri/noticetrack/internal/domain"
)

// Handler serves the troubleshooting workbook as a download.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the export service in an http.Handler.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.service.BuildReport(r.Context(), window)
	if err != nil {
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("notice-reconciliation_%s_%s.xlsx",
		window.From.Format("20060102"), window.To.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(report)
}

// windowFromQuery reads from/to date params, defaulting to the last seven
// days. The to-day is extended to end of day so the window is inclusive.
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
