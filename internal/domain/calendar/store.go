package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FactsBetween(ctx context.Context, countryCode string, start, end time.Time) ([]Fact, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT date, country_code, is_holiday, COALESCE(name, ''), COALESCE(local_name, ''), is_global
    FROM calendar_facts
    WHERE country_code = $1 AND date BETWEEN $2 AND $3
    ORDER BY date
  `, countryCode, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.Date, &f.CountryCode, &f.IsHoliday, &f.Name, &f.LocalName, &f.Global); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *Store) CountForYear(ctx context.Context, countryCode string, year int) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM calendar_facts
    WHERE country_code = $1 AND date >= $2 AND date < $3
  `, countryCode,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)).Scan(&count)
	return count, err
}

// UpsertFacts is safe under concurrent population: two simultaneous bulk
// loads for the same year resolve on the (date, country_code) unique key.
func (s *Store) UpsertFacts(ctx context.Context, facts []Fact) error {
	for _, f := range facts {
		_, err := s.DB.Exec(ctx, `
      INSERT INTO calendar_facts (date, country_code, is_holiday, name, local_name, is_global)
      VALUES ($1, $2, $3, $4, $5, $6)
      ON CONFLICT (date, country_code)
      DO UPDATE SET is_holiday = EXCLUDED.is_holiday, name = EXCLUDED.name,
                    local_name = EXCLUDED.local_name, is_global = EXCLUDED.is_global
    `, f.Date, f.CountryCode, f.IsHoliday, f.Name, f.LocalName, f.Global)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Settings(ctx context.Context, tenantID string) (*OrgSettings, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT tenant_id, country_code, holiday_mode
    FROM org_settings
    WHERE tenant_id = $1
  `, tenantID)

	var settings OrgSettings
	err := row.Scan(&settings.TenantID, &settings.CountryCode, &settings.HolidayMode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
