package parse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryAnnual      Category = "annual"
	CategorySick        Category = "sick"
	CategoryEmergency   Category = "emergency"
	CategoryCasual      Category = "casual"
	CategoryPersonal    Category = "personal"
	CategoryMaternity   Category = "maternity"
	CategoryPaternity   Category = "paternity"
	CategoryBereavement Category = "bereavement"
	CategoryCompOff     Category = "comp_off"
)

// InvalidDateError reports a calendar-impossible date mention ("feb 30")
// together with the two closest real alternatives. Dates are never clamped
// or guessed on the employee's behalf.
type InvalidDateError struct {
	RequestedText string
	Reason        string
	Suggestions   []time.Time
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.RequestedText, e.Reason)
}

// Intent is the structured reading of a free-text leave request. When
// Invalid is set no dates were resolved and StartDate/EndDate are zero.
type Intent struct {
	Category     Category          `json:"category"`
	StartDate    time.Time         `json:"startDate"`
	EndDate      time.Time         `json:"endDate"`
	DurationDays decimal.Decimal   `json:"durationDays"`
	IsHalfDay    bool              `json:"isHalfDay"`
	Invalid      *InvalidDateError `json:"-"`
	OriginalText string            `json:"originalText"`
}
