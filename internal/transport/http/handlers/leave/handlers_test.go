package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/decision"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/domain/identity"
	"leavedesk/internal/domain/ledger"
	"leavedesk/internal/domain/notify"
	"leavedesk/internal/domain/parse"
	"leavedesk/internal/domain/submission"
	"leavedesk/internal/transport/http/middleware"
)

type fakeSubmitter struct {
	result  *submission.Result
	err     error
	preview parse.Intent
	lastIn  submission.Input
}

func (f *fakeSubmitter) Submit(_ context.Context, _ identity.Actor, in submission.Input) (*submission.Result, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSubmitter) Preview(string) parse.Intent {
	return f.preview
}

type fakeLedger struct {
	balances   []ledger.Balance
	requests   []ledger.LeaveRequest
	request    *ledger.LeaveRequest
	settled    *ledger.LeaveRequest
	settleErr  error
	requestErr error

	lastEmployeeID string
	settleApprove  bool
}

func (f *fakeLedger) BalancesFor(_ context.Context, _, employeeID string, _ int) ([]ledger.Balance, error) {
	f.lastEmployeeID = employeeID
	return f.balances, nil
}

func (f *fakeLedger) RequestsFor(_ context.Context, _, employeeID string, _, _ int) ([]ledger.LeaveRequest, error) {
	f.lastEmployeeID = employeeID
	return f.requests, nil
}

func (f *fakeLedger) RequestByID(_ context.Context, _, _ string) (*ledger.LeaveRequest, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return f.request, nil
}

func (f *fakeLedger) Settle(_ context.Context, _, _ string, approve bool) (*ledger.LeaveRequest, error) {
	f.settleApprove = approve
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	return f.settled, nil
}

type fakeDirectory struct {
	snapshot *directory.TeamSnapshot
}

func (f *fakeDirectory) TeamStatus(_ context.Context, _, _ string, _, _ time.Time) (*directory.TeamSnapshot, error) {
	return f.snapshot, nil
}

type fakeAudit struct {
	entries []audit.RecordParams
}

func (f *fakeAudit) Record(_ context.Context, p audit.RecordParams) (*audit.Entry, error) {
	f.entries = append(f.entries, p)
	return &audit.Entry{ID: "a1"}, nil
}

func newTestRouter(h *Handler, actor *identity.Actor) http.Handler {
	r := chi.NewRouter()
	if actor != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithActor(req.Context(), *actor)))
			})
		})
	}
	h.RegisterRoutes(r)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func employeeActor() identity.Actor {
	return identity.Actor{ID: "u1", Type: identity.ActorUser, TenantID: "t1", EmployeeID: "e1", Role: middleware.RoleEmployee}
}

func hrActor() identity.Actor {
	return identity.Actor{ID: "hr1", Type: identity.ActorUser, TenantID: "t1", EmployeeID: "e9", Role: middleware.RoleHR}
}

func TestSubmitReturnsCreatedResult(t *testing.T) {
	submitter := &fakeSubmitter{
		result: &submission.Result{
			Request: &ledger.LeaveRequest{ID: "req-1", Status: ledger.StatusApproved},
			Outcome: &decision.Outcome{Disposition: decision.DispositionApproved},
		},
	}
	h := NewHandler(submitter, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	body := bytes.NewBufferString(`{"text":"I need sick leave tomorrow"}`)
	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	if envelope["success"] != true {
		t.Fatalf("expected success envelope, got %v", envelope)
	}
	if submitter.lastIn.Text != "I need sick leave tomorrow" {
		t.Fatalf("unexpected submitted text %q", submitter.lastIn.Text)
	}
}

func TestSubmitAcceptsStructuredFields(t *testing.T) {
	submitter := &fakeSubmitter{
		result: &submission.Result{
			Request: &ledger.LeaveRequest{ID: "req-1", Status: ledger.StatusApproved},
			Outcome: &decision.Outcome{Disposition: decision.DispositionApproved},
		},
	}
	h := NewHandler(submitter, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	// No free text at all: the structured fields carry the request.
	body := bytes.NewBufferString(`{"leaveType":"sick","startDate":"2026-02-02","endDate":"2026-02-04","totalDays":2.5,"isHalfDay":false}`)
	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	ov := submitter.lastIn.Overrides
	if ov.Category != "sick" {
		t.Fatalf("category = %q", ov.Category)
	}
	if ov.StartDate == nil || !ov.StartDate.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start date = %v", ov.StartDate)
	}
	if ov.EndDate == nil || !ov.EndDate.Equal(time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date = %v", ov.EndDate)
	}
	if ov.TotalDays == nil || !ov.TotalDays.Equal(decimal.NewFromFloat(2.5)) {
		t.Fatalf("total days = %v", ov.TotalDays)
	}
	if ov.IsHalfDay == nil || *ov.IsHalfDay {
		t.Fatalf("half day = %v", ov.IsHalfDay)
	}
}

func TestSubmitRejectsInvertedStructuredDates(t *testing.T) {
	h := NewHandler(&fakeSubmitter{}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	body := bytes.NewBufferString(`{"startDate":"2026-02-04","endDate":"2026-02-02"}`)
	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitRejectsUnknownLeaveType(t *testing.T) {
	h := NewHandler(&fakeSubmitter{}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	body := bytes.NewBufferString(`{"startDate":"2026-02-02","leaveType":"sabbatical"}`)
	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitRejectsAnonymous(t *testing.T) {
	h := NewHandler(&fakeSubmitter{}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	router := newTestRouter(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", bytes.NewBufferString(`{"text":"leave"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	h := NewHandler(&fakeSubmitter{}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", bytes.NewBufferString(`{"text":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitMapsInvalidDate(t *testing.T) {
	invalid := &parse.InvalidDateError{
		RequestedText: "feb 30",
		Reason:        "February only has 28 days in 2026",
		Suggestions: []time.Time{
			time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	h := NewHandler(&fakeSubmitter{err: invalid}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", bytes.NewBufferString(`{"text":"leave on feb 30"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	errObj, _ := envelope["error"].(map[string]any)
	if errObj["code"] != "invalid_date" {
		t.Fatalf("expected invalid_date code, got %v", errObj["code"])
	}
	details, _ := errObj["details"].(map[string]any)
	suggestions, _ := details["suggestions"].([]any)
	if len(suggestions) != 2 || suggestions[0] != "2026-02-28" || suggestions[1] != "2026-03-01" {
		t.Fatalf("unexpected suggestions: %v", suggestions)
	}
}

func TestSubmitMapsInsufficientBalance(t *testing.T) {
	insufficient := &ledger.InsufficientBalanceError{
		Remaining: decimal.NewFromInt(1),
		Requested: decimal.NewFromInt(4),
	}
	h := NewHandler(&fakeSubmitter{err: insufficient}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", bytes.NewBufferString(`{"text":"4 days off"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	errObj, _ := envelope["error"].(map[string]any)
	if errObj["code"] != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance code, got %v", errObj["code"])
	}
}

func TestSubmitMapsEvaluatorUnavailable(t *testing.T) {
	h := NewHandler(&fakeSubmitter{err: &decision.EvaluatorUnavailableError{}}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/submissions", bytes.NewBufferString(`{"text":"leave tomorrow"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestParsePreview(t *testing.T) {
	preview := parse.Intent{
		Category:     parse.CategorySick,
		StartDate:    time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		DurationDays: decimal.NewFromInt(1),
	}
	h := NewHandler(&fakeSubmitter{preview: preview}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/parse", bytes.NewBufferString(`{"text":"sick tomorrow"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	data, _ := envelope["data"].(map[string]any)
	if data["category"] != "sick" {
		t.Fatalf("expected sick category, got %v", data["category"])
	}
}

func TestListRequestsScopesToOwnEmployee(t *testing.T) {
	store := &fakeLedger{}
	h := NewHandler(&fakeSubmitter{}, store, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodGet, "/leave/requests?employeeId=e99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastEmployeeID != "e1" {
		t.Fatalf("expected scope to own employee, got %q", store.lastEmployeeID)
	}
}

func TestListRequestsAllowsHRToQueryOthers(t *testing.T) {
	store := &fakeLedger{}
	h := NewHandler(&fakeSubmitter{}, store, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := hrActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodGet, "/leave/requests?employeeId=e99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastEmployeeID != "e99" {
		t.Fatalf("expected hr query for e99, got %q", store.lastEmployeeID)
	}
}

func TestApproveRequiresReviewerRole(t *testing.T) {
	h := NewHandler(&fakeSubmitter{}, &fakeLedger{}, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/requests/req-1/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestApproveSettlesAndAudits(t *testing.T) {
	store := &fakeLedger{
		settled: &ledger.LeaveRequest{ID: "req-1", TenantID: "t1", EmployeeID: "e1", Status: ledger.StatusApproved},
	}
	auditSvc := &fakeAudit{}
	h := NewHandler(&fakeSubmitter{}, store, &fakeDirectory{}, auditSvc, notify.NoopPublisher{}, nil)
	actor := hrActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/requests/req-1/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !store.settleApprove {
		t.Fatal("expected settle with approve=true")
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "leave.approved" {
		t.Fatalf("unexpected audit entries: %+v", auditSvc.entries)
	}
}

func TestRejectAlreadySettled(t *testing.T) {
	store := &fakeLedger{settleErr: ledger.ErrAlreadySettled}
	h := NewHandler(&fakeSubmitter{}, store, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := hrActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodPost, "/leave/requests/req-1/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetRequestHidesOtherEmployees(t *testing.T) {
	store := &fakeLedger{
		request: &ledger.LeaveRequest{ID: "req-1", TenantID: "t1", EmployeeID: "e2"},
	}
	h := NewHandler(&fakeSubmitter{}, store, &fakeDirectory{}, &fakeAudit{}, notify.NoopPublisher{}, nil)
	actor := employeeActor()
	router := newTestRouter(h, &actor)

	req := httptest.NewRequest(http.MethodGet, "/leave/requests/req-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
