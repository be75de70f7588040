package decision

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DispositionApproved  = "approved"
	DispositionEscalated = "escalated"
)

// TeamState summarizes coverage in the employee's department for the
// requested range.
type TeamState struct {
	Headcount int `json:"headcount"`
	OnLeave   int `json:"onLeave"`
}

type BalanceState struct {
	Remaining decimal.Decimal `json:"remaining"`
	Entitled  decimal.Decimal `json:"entitled"`
}

// EvaluatorRequest is the payload sent to the external policy evaluator.
type EvaluatorRequest struct {
	EmployeeID  string          `json:"employeeId"`
	CountryCode string          `json:"countryCode"`
	LeaveType   string          `json:"leaveType"`
	TotalDays   decimal.Decimal `json:"totalDays"`
	IsHalfDay   bool            `json:"isHalfDay"`
	StartDate   string          `json:"startDate,omitempty"`
	EndDate     string          `json:"endDate,omitempty"`
	TeamState   TeamState       `json:"teamState"`
	Balance     BalanceState    `json:"leaveBalance"`
	Reason      string          `json:"reason"`
}

type Violation struct {
	RuleName string `json:"ruleName"`
	Message  string `json:"message"`
}

type EvaluatorResponse struct {
	Recommendation      string      `json:"recommendation"`
	Confidence          float64     `json:"confidence"`
	Violations          []Violation `json:"violations"`
	TotalRulesEvaluated int         `json:"totalRulesEvaluated"`
}

// Outcome is the reduced decision for one submission. It is embedded into
// the leave request's analysis column and the audit trail, never stored on
// its own.
type Outcome struct {
	Disposition         string      `json:"disposition"`
	Recommendation      string      `json:"recommendation"`
	Confidence          float64     `json:"confidence"`
	Violations          []Violation `json:"violations"`
	TotalRulesEvaluated int         `json:"totalRulesEvaluated"`
	Reason              string      `json:"reason"`
	Advisories          []string    `json:"advisories,omitempty"`
}

type EvaluatorUnavailableError struct {
	Cause error
}

func (e *EvaluatorUnavailableError) Error() string {
	return fmt.Sprintf("policy evaluator unavailable: %v", e.Cause)
}

func (e *EvaluatorUnavailableError) Unwrap() error { return e.Cause }
