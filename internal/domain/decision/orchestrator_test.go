package decision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeEvaluator struct {
	resp *EvaluatorResponse
	err  error
}

func (f *fakeEvaluator) Evaluate(context.Context, EvaluatorRequest) (*EvaluatorResponse, error) {
	return f.resp, f.err
}

func TestDecideApproved(t *testing.T) {
	o := NewOrchestrator(&fakeEvaluator{resp: &EvaluatorResponse{
		Recommendation: "approve", Confidence: 0.92, TotalRulesEvaluated: 14,
	}})

	outcome, err := o.Decide(context.Background(), EvaluatorRequest{TotalDays: decimal.NewFromInt(2)}, nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Disposition != DispositionApproved {
		t.Fatalf("disposition = %s", outcome.Disposition)
	}
	if outcome.Confidence != 0.92 {
		t.Fatalf("confidence = %f", outcome.Confidence)
	}
}

func TestDecideHalfDayAlwaysEscalates(t *testing.T) {
	o := NewOrchestrator(&fakeEvaluator{resp: &EvaluatorResponse{Recommendation: "approve"}})

	outcome, err := o.Decide(context.Background(), EvaluatorRequest{IsHalfDay: true}, nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Disposition != DispositionEscalated {
		t.Fatalf("disposition = %s", outcome.Disposition)
	}
	if outcome.Reason != "half-day requests require human review" {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

func TestDecideEscalationReasonTopThreeViolations(t *testing.T) {
	o := NewOrchestrator(&fakeEvaluator{resp: &EvaluatorResponse{
		Recommendation: "escalate",
		Violations: []Violation{
			{RuleName: "RULE002", Message: "insufficient balance"},
			{RuleName: "RULE003", Message: "team coverage below minimum"},
			{RuleName: "RULE005", Message: "blackout period"},
			{RuleName: "RULE007", Message: "advance notice too short"},
		},
	}})

	outcome, err := o.Decide(context.Background(), EvaluatorRequest{}, nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	want := "insufficient balance, team coverage below minimum, blackout period"
	if outcome.Reason != want {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

func TestDecideGenericEscalationReason(t *testing.T) {
	o := NewOrchestrator(&fakeEvaluator{resp: &EvaluatorResponse{Recommendation: "escalate"}})

	outcome, err := o.Decide(context.Background(), EvaluatorRequest{}, nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Reason != "policy evaluation requires human review" {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

func TestDecideEvaluatorFailurePropagates(t *testing.T) {
	o := NewOrchestrator(&fakeEvaluator{err: &EvaluatorUnavailableError{Cause: errors.New("timeout")}})

	_, err := o.Decide(context.Background(), EvaluatorRequest{}, nil)
	var unavailable *EvaluatorUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected evaluator unavailable, got %v", err)
	}
}

func TestEvaluatorClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendation":"approve","confidence":0.85,"violations":[],"totalRulesEvaluated":14}`))
	}))
	defer srv.Close()

	client := NewEvaluatorClient(srv.URL, time.Second)
	resp, err := client.Evaluate(context.Background(), EvaluatorRequest{EmployeeID: "e1"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if resp.Recommendation != "approve" || resp.TotalRulesEvaluated != 14 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestEvaluatorClientNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewEvaluatorClient(srv.URL, time.Second)
	_, err := client.Evaluate(context.Background(), EvaluatorRequest{})
	var unavailable *EvaluatorUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected evaluator unavailable, got %v", err)
	}
}
