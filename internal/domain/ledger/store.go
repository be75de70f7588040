package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var defaultEntitlements = map[string]decimal.Decimal{
	"annual":      decimal.NewFromInt(20),
	"sick":        decimal.NewFromInt(10),
	"casual":      decimal.NewFromInt(7),
	"personal":    decimal.NewFromInt(5),
	"emergency":   decimal.NewFromInt(5),
	"maternity":   decimal.NewFromInt(90),
	"paternity":   decimal.NewFromInt(10),
	"bereavement": decimal.NewFromInt(5),
	"comp_off":    decimal.NewFromInt(0),
}

func DefaultEntitlement(category string) decimal.Decimal {
	if v, ok := defaultEntitlements[category]; ok {
		return v
	}
	return decimal.Zero
}

type Store struct {
	DB     *pgxpool.Pool
	Logger *slog.Logger
}

func NewStore(db *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// CommitParams carries everything the ledger transaction writes: the
// balance charge plus the leave request row created in the same unit of
// work.
type CommitParams struct {
	TenantID       string
	EmployeeID     string
	Category       string
	Year           int
	RequestedDays  decimal.Decimal
	Disposition    string
	StartDate      time.Time
	EndDate        time.Time
	WorkingDays    int
	Reason         string
	IsHalfDay      bool
	Recommendation string
	Confidence     float64
	DecisionReason string
	Analysis       []byte
	SLADeadline    *time.Time
}

// Commit locks the balance row, verifies sufficient remaining days, applies
// the charge, and inserts the leave request, all in one transaction. A
// concurrent submission for the same balance sees either all of it or none
// of it.
func (s *Store) Commit(ctx context.Context, p CommitParams) (*LeaveRequest, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	balance, err := s.lockBalance(ctx, tx, p.TenantID, p.EmployeeID, p.Category, p.Year)
	if err != nil {
		return nil, err
	}

	updated, err := Apply(*balance, p.RequestedDays, p.Disposition)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = $1, pending_days = $2, updated_at = now()
    WHERE id = $3
  `, updated.UsedDays, updated.PendingDays, updated.ID)
	if err != nil {
		return nil, err
	}

	request := &LeaveRequest{
		TenantID:       p.TenantID,
		EmployeeID:     p.EmployeeID,
		Category:       p.Category,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		TotalDays:      p.RequestedDays,
		WorkingDays:    p.WorkingDays,
		Reason:         p.Reason,
		Status:         p.Disposition,
		IsHalfDay:      p.IsHalfDay,
		Recommendation: p.Recommendation,
		Confidence:     p.Confidence,
		DecisionReason: p.DecisionReason,
		Analysis:       p.Analysis,
		SLADeadline:    p.SLADeadline,
	}

	err = tx.QueryRow(ctx, `
    INSERT INTO leave_requests
      (tenant_id, employee_id, category, start_date, end_date, total_days, working_days,
       reason, status, is_half_day, recommendation, confidence, decision_reason, ai_analysis, sla_deadline)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    RETURNING id, created_at
  `, p.TenantID, p.EmployeeID, p.Category, p.StartDate, p.EndDate, p.RequestedDays, p.WorkingDays,
		p.Reason, p.Disposition, p.IsHalfDay, p.Recommendation, p.Confidence, p.DecisionReason, p.Analysis, p.SLADeadline).
		Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return request, nil
}

// lockBalance reads the balance row FOR UPDATE, creating a default row on
// first reference. Creation is logged: a synthesized balance is worth an
// operator's attention if it happens for an unexpected category.
func (s *Store) lockBalance(ctx context.Context, tx pgx.Tx, tenantID, employeeID, category string, year int) (*Balance, error) {
	balance := &Balance{TenantID: tenantID, EmployeeID: employeeID, Category: category, Year: year}

	err := tx.QueryRow(ctx, `
    SELECT id, entitlement, carried_forward, used_days, pending_days
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND category = $3 AND year = $4
    FOR UPDATE
  `, tenantID, employeeID, category, year).
		Scan(&balance.ID, &balance.Entitlement, &balance.CarriedForward, &balance.UsedDays, &balance.PendingDays)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	entitlement := DefaultEntitlement(category)
	err = tx.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, category, year, entitlement, carried_forward, used_days, pending_days)
    VALUES ($1, $2, $3, $4, $5, 0, 0, 0)
    ON CONFLICT (tenant_id, employee_id, category, year) DO UPDATE SET updated_at = now()
    RETURNING id, entitlement, carried_forward, used_days, pending_days
  `, tenantID, employeeID, category, year, entitlement).
		Scan(&balance.ID, &balance.Entitlement, &balance.CarriedForward, &balance.UsedDays, &balance.PendingDays)
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("synthesized default balance",
			"employeeId", employeeID, "category", category, "year", year,
			"entitlement", entitlement.String())
	}
	return balance, nil
}

// Settle finalizes an escalated request after human review, moving the
// reservation from pending to used on approval or releasing it on
// rejection, together with the status transition.
func (s *Store) Settle(ctx context.Context, tenantID, requestID string, approve bool) (*LeaveRequest, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	request := &LeaveRequest{ID: requestID, TenantID: tenantID}
	err = tx.QueryRow(ctx, `
    SELECT employee_id, category, start_date, end_date, total_days, status, is_half_day
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
    FOR UPDATE
  `, tenantID, requestID).
		Scan(&request.EmployeeID, &request.Category, &request.StartDate, &request.EndDate,
			&request.TotalDays, &request.Status, &request.IsHalfDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if request.Status != StatusEscalated && request.Status != StatusPending {
		return nil, ErrAlreadySettled
	}

	year := request.StartDate.Year()
	balance, err := s.lockBalance(ctx, tx, tenantID, request.EmployeeID, request.Category, year)
	if err != nil {
		return nil, err
	}

	updated, err := Settle(*balance, request.TotalDays, approve)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = $1, pending_days = $2, updated_at = now()
    WHERE id = $3
  `, updated.UsedDays, updated.PendingDays, updated.ID)
	if err != nil {
		return nil, err
	}

	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	_, err = tx.Exec(ctx, `
    UPDATE leave_requests SET status = $1, updated_at = now() WHERE id = $2
  `, status, requestID)
	if err != nil {
		return nil, err
	}
	request.Status = status

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return request, nil
}

var (
	ErrRequestNotFound = errors.New("leave request not found")
	ErrAlreadySettled  = errors.New("leave request already settled")
)

func (s *Store) BalanceFor(ctx context.Context, tenantID, employeeID, category string, year int) (*Balance, error) {
	balance := &Balance{TenantID: tenantID, EmployeeID: employeeID, Category: category, Year: year}
	err := s.DB.QueryRow(ctx, `
    SELECT id, entitlement, carried_forward, used_days, pending_days
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND category = $3 AND year = $4
  `, tenantID, employeeID, category, year).
		Scan(&balance.ID, &balance.Entitlement, &balance.CarriedForward, &balance.UsedDays, &balance.PendingDays)
	if errors.Is(err, pgx.ErrNoRows) {
		balance.Entitlement = DefaultEntitlement(category)
		return balance, nil
	}
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *Store) BalancesFor(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, category, entitlement, carried_forward, used_days, pending_days
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND year = $3
    ORDER BY category
  `, tenantID, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		b := Balance{TenantID: tenantID, EmployeeID: employeeID, Year: year}
		if err := rows.Scan(&b.ID, &b.Category, &b.Entitlement, &b.CarriedForward, &b.UsedDays, &b.PendingDays); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// employeeFilter maps an empty employee ID to SQL NULL so the query can
// use a uuid comparison without casting an empty string.
func employeeFilter(employeeID string) *string {
	if employeeID == "" {
		return nil
	}
	return &employeeID
}

func (s *Store) RequestsFor(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, category, start_date, end_date, total_days, working_days,
           reason, status, is_half_day, COALESCE(recommendation, ''), COALESCE(confidence, 0),
           COALESCE(decision_reason, ''), sla_deadline, created_at
    FROM leave_requests
    WHERE tenant_id = $1 AND ($2::uuid IS NULL OR employee_id = $2::uuid)
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, employeeFilter(employeeID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		r := LeaveRequest{TenantID: tenantID}
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Category, &r.StartDate, &r.EndDate, &r.TotalDays,
			&r.WorkingDays, &r.Reason, &r.Status, &r.IsHalfDay, &r.Recommendation, &r.Confidence,
			&r.DecisionReason, &r.SLADeadline, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Store) RequestByID(ctx context.Context, tenantID, requestID string) (*LeaveRequest, error) {
	r := &LeaveRequest{ID: requestID, TenantID: tenantID}
	err := s.DB.QueryRow(ctx, `
    SELECT employee_id, category, start_date, end_date, total_days, working_days,
           reason, status, is_half_day, COALESCE(recommendation, ''), COALESCE(confidence, 0),
           COALESCE(decision_reason, ''), sla_deadline, created_at
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID).
		Scan(&r.EmployeeID, &r.Category, &r.StartDate, &r.EndDate, &r.TotalDays,
			&r.WorkingDays, &r.Reason, &r.Status, &r.IsHalfDay, &r.Recommendation, &r.Confidence,
			&r.DecisionReason, &r.SLADeadline, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
