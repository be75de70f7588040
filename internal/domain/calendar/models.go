package calendar

import (
	"fmt"
	"time"
)

const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Fact is one cached calendar day for a country. Holidays are immutable
// once published, so cache entries never expire within a year.
type Fact struct {
	Date        time.Time `json:"date"`
	CountryCode string    `json:"countryCode"`
	IsHoliday   bool      `json:"isHoliday"`
	Name        string    `json:"name"`
	LocalName   string    `json:"localName"`
	Global      bool      `json:"global"`
}

// BlockedDate is an organization-defined no-leave day. The payload is
// versioned so older rows remain readable when fields are added.
type BlockedDate struct {
	Version  int       `json:"version"`
	Date     time.Time `json:"date"`
	Reason   string    `json:"reason"`
	TenantID string    `json:"tenantId"`
}

type OrgSettings struct {
	TenantID    string `json:"tenantId"`
	CountryCode string `json:"countryCode"`
	HolidayMode string `json:"holidayMode"`
}

// Resolution is the calendar verdict for a requested date range.
type Resolution struct {
	Holidays    []Fact        `json:"holidays"`
	Blocked     []BlockedDate `json:"blocked"`
	HasWeekend  bool          `json:"hasWeekend"`
	WorkingDays int           `json:"workingDays"`
	Advisories  []string      `json:"advisories"`
}

type HolidayConflictError struct {
	Date    time.Time
	Holiday string
}

func (e *HolidayConflictError) Error() string {
	return fmt.Sprintf("requested range includes public holiday %s on %s", e.Holiday, e.Date.Format("2006-01-02"))
}

type BlockedDateError struct {
	Date   time.Time
	Reason string
}

func (e *BlockedDateError) Error() string {
	return fmt.Sprintf("date %s is blocked: %s", e.Date.Format("2006-01-02"), e.Reason)
}
