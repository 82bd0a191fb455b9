package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercurio-pos/api/internal/report"
)

// ReportRunner is the aggregation surface the handler needs. Satisfied by
// *report.Runner.
type ReportRunner interface {
	Run(ctx context.Context, f report.Filter) (report.Result, error)
}

// ReportHandler serves sales aggregation summaries.
type ReportHandler struct {
	runner ReportRunner
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(runner ReportRunner) *ReportHandler {
	return &ReportHandler{runner: runner}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted at /reports.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

// Summary runs a full aggregation over the sale history.
// Query params: range (today|week|month|3months|6months|year|custom),
// start/end (custom range bounds), q (free text), instrument, type.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := report.Filter{
		Range:      q.Get("range"),
		Search:     q.Get("q"),
		Instrument: q.Get("instrument"),
		SaleType:   q.Get("type"),
	}

	if raw := q.Get("start"); raw != "" {
		t, err := report.ToInstant(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start"})
			return
		}
		f.Start = t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := report.ToInstant(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end"})
			return
		}
		f.End = t
	}

	result, err := h.runner.Run(r.Context(), f)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrInvalidRange):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date range"})
		case errors.Is(err, report.ErrStale):
			// a newer request owns the result; this run was discarded
			writeJSON(w, http.StatusConflict, map[string]string{"error": "superseded by a newer request"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
