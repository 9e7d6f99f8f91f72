package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/disha-labs/insight/pkg/export"
	"github.com/disha-labs/insight/pkg/httpx"
	"github.com/disha-labs/insight/pkg/query"
	"github.com/disha-labs/insight/pkg/service"
)

// maxExportRecords caps a single export response.
const maxExportRecords = 100000

// Handler serves the read-side analytics API.
type Handler struct {
	svc *service.Service
	log zerolog.Logger
}

// NewHandler creates the API handler over a service.
func NewHandler(svc *service.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// HandleAggregate handles GET /v1/aggregate.
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	agg, err := h.svc.AggregatedData(r.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("aggregate query failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, agg)
}

// HandleDashboard handles GET /v1/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.svc.DashboardData(r.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard query failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "dashboard computation failed")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, view)
}

// HandleStats handles GET /v1/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("stats query failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, stats)
}

// HandleExport handles GET /v1/export. Query params: the usual filter
// fields plus format=json|csv (default json).
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	if f.Limit == 0 || f.Limit > maxExportRecords {
		f.Limit = maxExportRecords
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	recs, err := h.svc.ExportData(r.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("export query failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "export failed")
		return
	}

	stamp := time.Now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=insight-export-%s.json", stamp))
		_, err = export.ToJSON(w, recs)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=insight-export-%s.csv", stamp))
		_, err = export.ToCSV(w, recs)
	}
	if err != nil {
		// Headers are gone; all we can do is log.
		h.log.Error().Err(err).Str("format", format).Msg("export serialization failed")
		return
	}
	h.log.Info().Int("records", len(recs)).Str("format", format).Msg("export complete")
}

// HandleImport handles POST /v1/import with a JSON export body.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	recs, result, err := export.FromJSON(r.Body)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.ImportData(r.Context(), recs); err != nil {
		h.log.Error().Err(err).Msg("import failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "import failed")
		return
	}

	if len(result.Errors) > 0 {
		h.log.Warn().Int("invalid", len(result.Errors)).Msg("import skipped invalid records")
	}
	httpx.RespondJSON(w, http.StatusOK, result)
}

// HandleCleanup handles POST /v1/cleanup?days=N.
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		httpx.RespondErrorString(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	removed, err := h.svc.CleanupOldData(r.Context(), days)
	if err != nil {
		h.log.Error().Err(err).Msg("cleanup failed")
		httpx.RespondErrorString(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleHealth handles GET /v1/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// parseFilter builds a query filter from URL parameters. Dates accept
// RFC 3339 or plain YYYY-MM-DD.
func parseFilter(values url.Values) (query.Filter, error) {
	f := query.Filter{
		Grade:       values.Get("grade"),
		Board:       values.Get("board"),
		Location:    values.Get("location"),
		RuralUrban:  values.Get("ruralUrban"),
		Language:    values.Get("language"),
		IncomeRange: values.Get("incomeRange"),
	}

	var err error
	if f.From, err = parseTime(values.Get("from")); err != nil {
		return f, fmt.Errorf("invalid from: %w", err)
	}
	if f.To, err = parseTime(values.Get("to")); err != nil {
		return f, fmt.Errorf("invalid to: %w", err)
	}

	if v := values.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, fmt.Errorf("limit must be a non-negative integer")
		}
	}
	if v := values.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return f, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("want RFC3339 or YYYY-MM-DD, got %q", v)
}
