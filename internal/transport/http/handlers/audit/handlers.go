package audithandler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type auditReader interface {
	Count(ctx context.Context, tenantID string, filter audit.Filter) (int, error)
	List(ctx context.Context, tenantID string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Entry, error)
	ListExport(ctx context.Context, tenantID string) ([]audit.Entry, error)
}

type Handler struct {
	Service auditReader
}

func NewHandler(service auditReader) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleHR, middleware.RoleAdmin))
		r.Get("/entries", h.handleListEntries)
		r.Get("/entries/export", h.handleExportCSV)
		r.Get("/entries/export.pdf", h.handleExportPDF)
	})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	filter, err := parseFilter(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
		return
	}
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), actor.TenantID, filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}

	entries, err := h.Service.List(r.Context(), actor.TenantID, filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit entries", reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, map[string]any{
		"items":  entries,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, reqID)
}

func parseFilter(r *http.Request) (audit.Filter, error) {
	filter := audit.Filter{
		ActorType:  r.URL.Query().Get("actorType"),
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
	}
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return filter, fmt.Errorf("from must be a valid date")
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return filter, fmt.Errorf("to must be a valid date")
	}
	filter.From = from
	if !to.IsZero() {
		// to is inclusive of the whole day
		filter.To = to.AddDate(0, 0, 1)
	}
	return filter, nil
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	entries, err := h.Service.ListExport(r.Context(), actor.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit entries", reqID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-entries.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor", "actor_type", "action", "entity_type", "entity_id", "decision_reason", "integrity_hash", "request_id", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, entry := range entries {
		row := []string{
			entry.ID,
			entry.ActorName,
			entry.ActorType,
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			entry.DecisionReason,
			entry.IntegrityHash,
			entry.RequestID,
			entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	entries, err := h.Service.ListExport(r.Context(), actor.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit entries", reqID)
		return
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Audit Trail")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d entries", time.Now().UTC().Format(time.RFC3339), len(entries)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 8)
	widths := []float64{36, 36, 30, 30, 40, 70, 30}
	headers := []string{"Time", "Actor", "Type", "Action", "Entity", "Reason", "Request"}
	for i, header := range headers {
		pdf.CellFormat(widths[i], 6, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, entry := range entries {
		cells := []string{
			entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			truncate(entry.ActorName, 24),
			entry.ActorType,
			truncate(entry.Action, 20),
			truncate(entry.EntityType+" "+entry.EntityID, 26),
			truncate(entry.DecisionReason, 48),
			truncate(entry.RequestID, 18),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to render audit export", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-entries.pdf")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("audit pdf write failed", "err", err)
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
