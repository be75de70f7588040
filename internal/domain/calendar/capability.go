package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leavedesk/internal/platform/querier"
)

// BlockedDatesCapability is resolved once at startup. Deployments that have
// not applied the blocked_dates migration keep the rest of the pipeline
// working, with blocked-date checks reported as unavailable.
type BlockedDatesCapability struct {
	available bool
	reason    string
	db        querier.Querier
}

func DetectBlockedDates(ctx context.Context, db querier.Querier) *BlockedDatesCapability {
	var regclass *string
	err := db.QueryRow(ctx, "SELECT to_regclass('blocked_dates')::text").Scan(&regclass)
	if err != nil {
		return &BlockedDatesCapability{reason: fmt.Sprintf("feature detection failed: %v", err), db: db}
	}
	if regclass == nil {
		return &BlockedDatesCapability{reason: "blocked_dates table not present", db: db}
	}
	return &BlockedDatesCapability{available: true, db: db}
}

func (c *BlockedDatesCapability) Available() bool { return c.available }
func (c *BlockedDatesCapability) Reason() string  { return c.reason }

// blockedPayload is the stored JSON shape. Version 1 is the only published
// schema; unknown versions are rejected at read time rather than passed
// through as opaque blobs.
type blockedPayload struct {
	Version int    `json:"version"`
	Reason  string `json:"reason"`
}

func (c *BlockedDatesCapability) Between(ctx context.Context, tenantID string, start, end time.Time) ([]BlockedDate, error) {
	if !c.available {
		return nil, nil
	}

	rows, err := c.db.Query(ctx, `
    SELECT tenant_id, date, payload
    FROM blocked_dates
    WHERE tenant_id = $1 AND date BETWEEN $2 AND $3
    ORDER BY date
  `, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocked []BlockedDate
	for rows.Next() {
		var bd BlockedDate
		var raw []byte
		if err := rows.Scan(&bd.TenantID, &bd.Date, &raw); err != nil {
			return nil, err
		}
		var payload blockedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("blocked date %s: bad payload: %w", bd.Date.Format("2006-01-02"), err)
		}
		if payload.Version != 1 {
			return nil, fmt.Errorf("blocked date %s: unsupported payload version %d", bd.Date.Format("2006-01-02"), payload.Version)
		}
		bd.Version = payload.Version
		bd.Reason = payload.Reason
		blocked = append(blocked, bd)
	}
	return blocked, rows.Err()
}
