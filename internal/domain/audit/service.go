package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leavedesk/internal/platform/querier"
)

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

type RecordParams struct {
	TenantID       string
	ActorID        string
	ActorType      string
	Action         string
	EntityType     string
	EntityID       string
	PreviousState  any
	NewState       any
	DecisionReason string
	RequestID      string
}

// Record writes one append-only entry. The timestamp is set here, not by
// the database, so the integrity hash can be recomputed from stored fields.
// Callers treat a returned error as non-fatal: audit failure never unwinds
// the business transaction it describes.
func (s *Service) Record(ctx context.Context, p RecordParams) (*Entry, error) {
	var prevJSON, newJSON []byte
	if p.PreviousState != nil {
		payload, err := json.Marshal(p.PreviousState)
		if err != nil {
			return nil, err
		}
		prevJSON = payload
	}
	if p.NewState != nil {
		payload, err := json.Marshal(p.NewState)
		if err != nil {
			return nil, err
		}
		newJSON = payload
	}

	entry := &Entry{
		TenantID:       p.TenantID,
		ActorID:        p.ActorID,
		ActorType:      p.ActorType,
		Action:         p.Action,
		EntityType:     p.EntityType,
		EntityID:       p.EntityID,
		PreviousState:  prevJSON,
		NewState:       newJSON,
		DecisionReason: p.DecisionReason,
		RequestID:      p.RequestID,
		// timestamptz stores microseconds; the hash must survive a round
		// trip through the stored column.
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	entry.IntegrityHash = Hash(entry.CreatedAt, entry.ActorType, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID)

	err := s.DB.QueryRow(ctx, `
    INSERT INTO audit_entries
      (tenant_id, actor_id, actor_type, action, entity_type, entity_id,
       previous_state, new_state, decision_reason, integrity_hash, request_id, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, entry.TenantID, entry.ActorID, entry.ActorType, entry.Action, entry.EntityType, entry.EntityID,
		prevJSON, newJSON, entry.DecisionReason, entry.IntegrityHash, entry.RequestID, entry.CreatedAt).
		Scan(&entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, includeDetails bool, limit, offset int) ([]Entry, error) {
	selectCols := `a.id, a.actor_id, a.actor_type, COALESCE(e.full_name, ''), a.action, a.entity_type, a.entity_id,
                 COALESCE(a.decision_reason, ''), a.integrity_hash, a.request_id, a.created_at`
	if includeDetails {
		selectCols += ", a.previous_state, a.new_state"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, tenantID, filter)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry := Entry{TenantID: tenantID}
		var directoryName string
		dest := []any{&entry.ID, &entry.ActorID, &entry.ActorType, &directoryName, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.DecisionReason, &entry.IntegrityHash, &entry.RequestID, &entry.CreatedAt}
		if includeDetails {
			dest = append(dest, &entry.PreviousState, &entry.NewState)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		entry.ActorName = ActorLabel(entry.ActorType, directoryName)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Service) ListExport(ctx context.Context, tenantID string) ([]Entry, error) {
	return s.List(ctx, tenantID, Filter{}, false, 10000, 0)
}

func buildBaseQuery(prefix, tenantID string, filter Filter) (string, []any) {
	query := prefix + `
    FROM audit_entries a
    LEFT JOIN employees e ON a.actor_type = 'user' AND e.id::text = a.actor_id
    WHERE a.tenant_id = $1`
	args := []any{tenantID}
	if filter.ActorType != "" {
		query += fmt.Sprintf(" AND a.actor_type = $%d", len(args)+1)
		args = append(args, filter.ActorType)
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND a.action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND a.entity_type = $%d", len(args)+1)
		args = append(args, filter.EntityType)
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND a.created_at >= $%d", len(args)+1)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		// To is exclusive; callers pass the start of the day after the
		// requested range.
		query += fmt.Sprintf(" AND a.created_at < $%d", len(args)+1)
		args = append(args, filter.To)
	}
	return query, args
}
