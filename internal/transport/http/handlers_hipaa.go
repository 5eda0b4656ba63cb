package httptransport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vetdocs/internal/breach"
	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/retention"
	"vetdocs/pkg/platform/httputil"
)

// HIPAAHandler serves the admin compliance surface: audit log queries,
// on-demand retention sweeps, the compliance summary, and breach
// incident reporting. The router mounts all of it behind admin auth.
type HIPAAHandler struct {
	auditor   *audit.Logger
	scheduler *retention.Scheduler
	breaches  *breach.Service
	log       *slog.Logger
}

func NewHIPAAHandler(auditor *audit.Logger, scheduler *retention.Scheduler, breaches *breach.Service, log *slog.Logger) *HIPAAHandler {
	return &HIPAAHandler{auditor: auditor, scheduler: scheduler, breaches: breaches, log: log}
}

func (h *HIPAAHandler) Register(r chi.Router) {
	r.Get("/hipaa/audit-logs", h.handleAuditLogs)
	r.Post("/hipaa/execute-data-retention", h.handleExecuteRetention)
	r.Get("/hipaa/compliance-summary", h.handleComplianceSummary)
	r.Post("/hipaa/report-breach", h.handleReportBreach)
	r.Get("/hipaa/breach-incidents", h.handleListBreaches)
	r.Get("/hipaa/breach-incidents/{id}", h.handleGetBreach)
}

func (h *HIPAAHandler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	records, err := h.auditor.Query(r.Context(), filter)
	if err != nil {
		h.log.Error("audit log query failed", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"audit_logs": records,
		"count":      len(records),
	})
}

func (h *HIPAAHandler) handleExecuteRetention(w http.ResponseWriter, r *http.Request) {
	results, err := h.scheduler.ExecuteDue(r.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error("retention sweep failed", "error", err)
		writeDomainError(w, err)
		return
	}

	type sweepItem struct {
		ResourceType string `json:"resource_type"`
		ResourceID   string `json:"resource_id"`
		Outcome      string `json:"outcome"`
	}
	items := make([]sweepItem, 0, len(results))
	deleted := 0
	for _, result := range results {
		items = append(items, sweepItem{
			ResourceType: result.ResourceType,
			ResourceID:   result.ResourceID,
			Outcome:      result.Outcome,
		})
		if result.Err == "" {
			deleted++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":       "data retention executed",
		"deleted_count": deleted,
		"results":       items,
	})
}

func (h *HIPAAHandler) handleComplianceSummary(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "days must be between 1 and 365")
			return
		}
		days = parsed
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	records, err := h.auditor.Query(r.Context(), audit.Filter{
		From:  since,
		Limit: audit.MaxQueryLimit,
	})
	if err != nil {
		h.log.Error("compliance summary query failed", "error", err)
		writeDomainError(w, err)
		return
	}

	byEventType := map[string]int{}
	byOutcome := map[string]int{}
	phiEvents := 0
	for _, record := range records {
		byEventType[string(record.EventType)]++
		byOutcome[string(record.Outcome)]++
		if record.PHIInvolved {
			phiEvents++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"window_days":   days,
		"total_events":  len(records),
		"phi_events":    phiEvents,
		"by_event_type": byEventType,
		"by_outcome":    byOutcome,
		"generated_at":  time.Now().UTC(),
	})
}

func (h *HIPAAHandler) handleReportBreach(w http.ResponseWriter, r *http.Request) {
	var input breach.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	incident, err := h.breaches.Report(r.Context(), input)
	if err != nil {
		h.log.Error("breach report failed", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":     "breach incident reported",
		"incident_id": incident.ID,
	})
}

func (h *HIPAAHandler) handleListBreaches(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.breaches.List(r.Context())
	if err != nil {
		h.log.Error("breach listing failed", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incidents)
}

func (h *HIPAAHandler) handleGetBreach(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid incident id")
		return
	}

	incident, err := h.breaches.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incident)
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	filter := audit.Filter{Limit: audit.DefaultQueryLimit}
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > audit.MaxQueryLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", audit.MaxQueryLimit)
		}
		filter.Limit = limit
	}
	if raw := query.Get("event_type"); raw != "" {
		filter.EventType = audit.EventType(raw)
	}
	if raw := query.Get("start_date"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return filter, err
		}
		filter.From = from
	}
	if raw := query.Get("end_date"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return filter, err
		}
		filter.To = to
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("offset must not be negative")
		}
		filter.Offset = offset
	}
	return filter, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
