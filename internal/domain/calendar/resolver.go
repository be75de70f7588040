package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leavedesk/internal/platform/metrics"
)

type factStore interface {
	FactsBetween(ctx context.Context, countryCode string, start, end time.Time) ([]Fact, error)
	CountForYear(ctx context.Context, countryCode string, year int) (int, error)
	UpsertFacts(ctx context.Context, facts []Fact) error
}

type holidayProvider interface {
	PublicHolidays(ctx context.Context, year int, countryCode string) ([]Fact, error)
}

type blockedDates interface {
	Available() bool
	Between(ctx context.Context, tenantID string, start, end time.Time) ([]BlockedDate, error)
}

type Resolver struct {
	Facts    factStore
	Provider holidayProvider
	Blocked  blockedDates
	Logger   *slog.Logger
	Metrics  *metrics.Collector
}

func NewResolver(facts factStore, provider holidayProvider, blocked blockedDates, logger *slog.Logger) *Resolver {
	return &Resolver{Facts: facts, Provider: provider, Blocked: blocked, Logger: logger}
}

// Resolve checks a date range against cached holiday facts and blocked
// dates. In auto mode a holiday or blocked overlap fails the request; in
// manual mode the same facts come back as advisories.
func (r *Resolver) Resolve(ctx context.Context, tenantID, countryCode, mode string, start, end time.Time) (*Resolution, error) {
	for _, year := range yearsSpanned(start, end) {
		if err := r.ensureYear(ctx, countryCode, year); err != nil {
			return nil, err
		}
	}

	facts, err := r.Facts.FactsBetween(ctx, countryCode, start, end)
	if err != nil {
		return nil, err
	}

	res := &Resolution{}
	for _, f := range facts {
		if f.IsHoliday {
			res.Holidays = append(res.Holidays, f)
		}
	}

	if r.Blocked != nil && r.Blocked.Available() {
		blocked, err := r.Blocked.Between(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		res.Blocked = blocked
	}

	res.HasWeekend = hasWeekend(start, end)
	res.WorkingDays = workingDays(start, end, res.Holidays)

	if mode == ModeAuto {
		if len(res.Holidays) > 0 {
			h := res.Holidays[0]
			return nil, &HolidayConflictError{Date: h.Date, Holiday: h.Name}
		}
		if len(res.Blocked) > 0 {
			b := res.Blocked[0]
			return nil, &BlockedDateError{Date: b.Date, Reason: b.Reason}
		}
		return res, nil
	}

	for _, h := range res.Holidays {
		res.Advisories = append(res.Advisories, fmt.Sprintf("%s is a public holiday (%s)", h.Date.Format("2006-01-02"), h.Name))
	}
	for _, b := range res.Blocked {
		res.Advisories = append(res.Advisories, fmt.Sprintf("%s is blocked: %s", b.Date.Format("2006-01-02"), b.Reason))
	}
	return res, nil
}

// ensureYear bulk-loads a whole year from the provider on a cache miss, so
// later checks for the same year never leave the database.
func (r *Resolver) ensureYear(ctx context.Context, countryCode string, year int) error {
	count, err := r.Facts.CountForYear(ctx, countryCode, year)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	facts, err := r.Provider.PublicHolidays(ctx, year, countryCode)
	if err != nil {
		if r.Metrics != nil {
			r.Metrics.RecordProviderFailure()
		}
		return err
	}
	if r.Logger != nil {
		r.Logger.Info("calendar cache populated", "country", countryCode, "year", year, "holidays", len(facts))
	}
	if len(facts) == 0 {
		// A year with no published holidays still counts as fetched. Store
		// a non-holiday marker so CountForYear sees the year as populated.
		facts = []Fact{{
			Date:        time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			CountryCode: countryCode,
		}}
	}
	return r.Facts.UpsertFacts(ctx, facts)
}

func yearsSpanned(start, end time.Time) []int {
	years := []int{start.Year()}
	if end.Year() != start.Year() {
		years = append(years, end.Year())
	}
	return years
}

func hasWeekend(start, end time.Time) bool {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			return true
		}
	}
	return false
}

func workingDays(start, end time.Time, holidays []Fact) int {
	holidaySet := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		holidaySet[h.Date.Format("2006-01-02")] = true
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if holidaySet[d.Format("2006-01-02")] {
			continue
		}
		count++
	}
	return count
}
