package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusEscalated = "escalated"
)

// Balance is one employee's entitlement row for a category and year.
// Rows are created lazily on first reference and never deleted; a new
// year gets a new row.
type Balance struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	EmployeeID     string          `json:"employeeId"`
	Category       string          `json:"category"`
	Year           int             `json:"year"`
	Entitlement    decimal.Decimal `json:"annualEntitlement"`
	CarriedForward decimal.Decimal `json:"carriedForward"`
	UsedDays       decimal.Decimal `json:"usedDays"`
	PendingDays    decimal.Decimal `json:"pendingDays"`
}

func (b Balance) Remaining() decimal.Decimal {
	return b.Entitlement.Add(b.CarriedForward).Sub(b.UsedDays).Sub(b.PendingDays)
}

type LeaveRequest struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	EmployeeID     string          `json:"employeeId"`
	Category       string          `json:"category"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	TotalDays      decimal.Decimal `json:"totalDays"`
	WorkingDays    int             `json:"workingDays"`
	Reason         string          `json:"reason"`
	Status         string          `json:"status"`
	IsHalfDay      bool            `json:"isHalfDay"`
	Recommendation string          `json:"recommendation"`
	Confidence     float64         `json:"confidence"`
	DecisionReason string          `json:"decisionReason"`
	Analysis       []byte          `json:"-"`
	SLADeadline    *time.Time      `json:"slaDeadline,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type InsufficientBalanceError struct {
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %s days remaining, %s requested", e.Remaining.String(), e.Requested.String())
}
