package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/decision"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/domain/identity"
	"leavedesk/internal/domain/ledger"
	"leavedesk/internal/domain/notify"
	"leavedesk/internal/domain/parse"
	"leavedesk/internal/domain/submission"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type submitter interface {
	Submit(ctx context.Context, actor identity.Actor, input submission.Input) (*submission.Result, error)
	Preview(text string) parse.Intent
}

type requestLedger interface {
	BalancesFor(ctx context.Context, tenantID, employeeID string, year int) ([]ledger.Balance, error)
	RequestsFor(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]ledger.LeaveRequest, error)
	RequestByID(ctx context.Context, tenantID, requestID string) (*ledger.LeaveRequest, error)
	Settle(ctx context.Context, tenantID, requestID string, approve bool) (*ledger.LeaveRequest, error)
}

type teamDirectory interface {
	TeamStatus(ctx context.Context, tenantID, employeeID string, start, end time.Time) (*directory.TeamSnapshot, error)
}

type auditRecorder interface {
	Record(ctx context.Context, p audit.RecordParams) (*audit.Entry, error)
}

type Handler struct {
	Submissions submitter
	Ledger      requestLedger
	Directory   teamDirectory
	Audit       auditRecorder
	Notify      notify.Publisher
	Idem        *middleware.IdempotencyStore
	Validate    *validator.Validate
}

func NewHandler(submissions submitter, store requestLedger, dir teamDirectory, auditSvc auditRecorder, publisher notify.Publisher, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{
		Submissions: submissions,
		Ledger:      store,
		Directory:   dir,
		Audit:       auditSvc,
		Notify:      publisher,
		Idem:        idem,
		Validate:    validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Post("/submissions", h.handleSubmit)
		r.Post("/parse", h.handleParse)
		r.Get("/balances", h.handleListBalances)
		r.Get("/requests", h.handleListRequests)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.Get("/team-status", h.handleTeamStatus)
		r.With(middleware.RequireRole(middleware.RoleHR, middleware.RoleAdmin)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequireRole(middleware.RoleHR, middleware.RoleAdmin)).Post("/requests/{requestID}/reject", h.handleReject)
	})
}

// Clients may send free text, pre-parsed fields, or both. Explicit fields
// win over whatever extraction reads from the text.
type submitPayload struct {
	Text      string   `json:"text" validate:"required_without=StartDate,max=500"`
	Reason    string   `json:"reason" validate:"max=500"`
	LeaveType string   `json:"leaveType" validate:"omitempty,oneof=annual sick emergency casual personal maternity paternity bereavement comp_off"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	TotalDays *float64 `json:"totalDays" validate:"omitempty,gt=0,lte=366"`
	IsHalfDay *bool    `json:"isHalfDay"`
}

func (p submitPayload) overrides() (submission.Overrides, error) {
	ov := submission.Overrides{Category: p.LeaveType, IsHalfDay: p.IsHalfDay}
	if p.TotalDays != nil {
		days := decimal.NewFromFloat(*p.TotalDays)
		ov.TotalDays = &days
	}
	start, err := shared.ParseDate(p.StartDate)
	if err != nil {
		return ov, err
	}
	if !start.IsZero() {
		ov.StartDate = &start
	}
	end, err := shared.ParseDate(p.EndDate)
	if err != nil {
		return ov, err
	}
	if !end.IsZero() {
		if ov.StartDate != nil && end.Before(start) {
			return ov, errors.New("endDate is before startDate")
		}
		ov.EndDate = &end
	}
	return ov, nil
}

type parsePayload struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", reqID)
		return
	}
	var payload submitPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.Validate(w, h.Validate, payload, reqID) {
		return
	}
	overrides, err := payload.overrides()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(raw)
	if idemKey != "" {
		stored, replay, err := h.Idem.Check(r.Context(), actor.TenantID, actor.ID, "leave.submissions", idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", reqID)
			return
		}
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "idempotency_check_failed", "failed to check idempotency key", reqID)
			return
		}
		if replay {
			api.Success(w, json.RawMessage(stored), reqID)
			return
		}
	}

	result, err := h.Submissions.Submit(r.Context(), actor, submission.Input{
		Text:      payload.Text,
		Reason:    payload.Reason,
		RequestID: reqID,
		Overrides: overrides,
	})
	if err != nil {
		h.failSubmission(w, err, reqID)
		return
	}

	if idemKey != "" {
		if encoded, marshalErr := json.Marshal(result); marshalErr == nil {
			if saveErr := h.Idem.Save(r.Context(), actor.TenantID, actor.ID, "leave.submissions", idemKey, requestHash, encoded); saveErr != nil {
				slog.Warn("idempotency save failed", "key", idemKey, "err", saveErr)
			}
		}
	}

	api.Created(w, result, reqID)
}

// failSubmission maps pipeline errors onto the response taxonomy. Every
// rejection carries enough detail for the caller to rephrase or retry.
func (h *Handler) failSubmission(w http.ResponseWriter, err error, reqID string) {
	var invalidDate *parse.InvalidDateError
	if errors.As(err, &invalidDate) {
		suggestions := make([]string, 0, len(invalidDate.Suggestions))
		for _, s := range invalidDate.Suggestions {
			suggestions = append(suggestions, s.Format("2006-01-02"))
		}
		api.FailWithDetails(w, http.StatusBadRequest, "invalid_date", invalidDate.Reason, map[string]any{
			"requested":   invalidDate.RequestedText,
			"suggestions": suggestions,
		}, reqID)
		return
	}

	var holidayConflict *calendar.HolidayConflictError
	if errors.As(err, &holidayConflict) {
		api.FailWithDetails(w, http.StatusConflict, "holiday_conflict", holidayConflict.Error(), map[string]any{
			"date":    holidayConflict.Date.Format("2006-01-02"),
			"holiday": holidayConflict.Holiday,
		}, reqID)
		return
	}

	var blocked *calendar.BlockedDateError
	if errors.As(err, &blocked) {
		api.FailWithDetails(w, http.StatusConflict, "blocked_date", blocked.Error(), map[string]any{
			"date":   blocked.Date.Format("2006-01-02"),
			"reason": blocked.Reason,
		}, reqID)
		return
	}

	var insufficient *ledger.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		api.FailWithDetails(w, http.StatusConflict, "insufficient_balance", insufficient.Error(), map[string]any{
			"remaining": insufficient.Remaining.String(),
			"requested": insufficient.Requested.String(),
		}, reqID)
		return
	}

	var unavailable *decision.EvaluatorUnavailableError
	if errors.As(err, &unavailable) {
		api.Fail(w, http.StatusServiceUnavailable, "evaluator_unavailable", "policy evaluator is unavailable, submission was not recorded", reqID)
		return
	}

	slog.Error("submission failed", "err", err)
	api.Fail(w, http.StatusInternalServerError, "submission_failed", "failed to process submission", reqID)
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload parsePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.Validate(w, h.Validate, payload, reqID) {
		return
	}

	intent := h.Submissions.Preview(payload.Text)
	if intent.Invalid != nil {
		h.failSubmission(w, intent.Invalid, reqID)
		return
	}
	api.Success(w, intent, reqID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid year", reqID)
			return
		}
		year = parsed
	}

	employeeID := actor.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && h.isPrivileged(actor) {
		employeeID = requested
	}

	balances, err := h.Ledger.BalancesFor(r.Context(), actor.TenantID, employeeID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balances_failed", "failed to list balances", reqID)
		return
	}
	api.Success(w, map[string]any{"year": year, "balances": balances}, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	pagination := shared.ParsePagination(r, 20, 100)

	employeeID := actor.EmployeeID
	if h.isPrivileged(actor) {
		employeeID = r.URL.Query().Get("employeeId")
	}

	requests, err := h.Ledger.RequestsFor(r.Context(), actor.TenantID, employeeID, pagination.Limit, pagination.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requests_failed", "failed to list leave requests", reqID)
		return
	}
	api.Success(w, map[string]any{
		"items":  requests,
		"limit":  pagination.Limit,
		"offset": pagination.Offset,
	}, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	request, err := h.Ledger.RequestByID(r.Context(), actor.TenantID, chi.URLParam(r, "requestID"))
	if errors.Is(err, ledger.ErrRequestNotFound) {
		api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "request_failed", "failed to load leave request", reqID)
		return
	}
	if request.EmployeeID != actor.EmployeeID && !h.isPrivileged(actor) {
		api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", reqID)
		return
	}
	api.Success(w, request, reqID)
}

func (h *Handler) handleTeamStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	start, err := shared.ParseDate(r.URL.Query().Get("start"))
	if err != nil || start.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "start must be a valid date in YYYY-MM-DD format", reqID)
		return
	}
	end, err := shared.ParseDate(r.URL.Query().Get("end"))
	if err != nil || end.IsZero() {
		end = start
	}
	if end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "end must be on or after start", reqID)
		return
	}

	snapshot, err := h.Directory.TeamStatus(r.Context(), actor.TenantID, actor.EmployeeID, start, end)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "team_status_failed", "failed to load team status", reqID)
		return
	}
	api.Success(w, snapshot, reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleSettle(w, r, true)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleSettle(w, r, false)
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request, approve bool) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	requestID := chi.URLParam(r, "requestID")
	request, err := h.Ledger.Settle(r.Context(), actor.TenantID, requestID, approve)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", reqID)
		return
	}
	if errors.Is(err, ledger.ErrAlreadySettled) {
		api.Fail(w, http.StatusConflict, "already_settled", "leave request is no longer pending review", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settle_failed", "failed to settle leave request", reqID)
		return
	}

	action := "leave.approved"
	if !approve {
		action = "leave.rejected"
	}
	if _, auditErr := h.Audit.Record(r.Context(), audit.RecordParams{
		TenantID:   actor.TenantID,
		ActorID:    actor.ID,
		ActorType:  actor.Type,
		Action:     action,
		EntityType: "leave_request",
		EntityID:   request.ID,
		NewState:   request,
		RequestID:  reqID,
	}); auditErr != nil {
		slog.Warn("audit write failed", "action", action, "err", auditErr)
	}

	if h.Notify != nil {
		event := notify.DecisionEvent{
			RequestID:   request.ID,
			TenantID:    request.TenantID,
			EmployeeID:  request.EmployeeID,
			Category:    request.Category,
			Disposition: request.Status,
			StartDate:   request.StartDate.Format("2006-01-02"),
			EndDate:     request.EndDate.Format("2006-01-02"),
			OccurredAt:  time.Now().UTC(),
		}
		if pubErr := h.Notify.PublishDecision(r.Context(), event); pubErr != nil {
			slog.Warn("decision event publish failed", "requestId", request.ID, "err", pubErr)
		}
	}

	api.Success(w, request, reqID)
}

func (h *Handler) isPrivileged(actor identity.Actor) bool {
	return actor.Role == middleware.RoleHR || actor.Role == middleware.RoleAdmin
}
