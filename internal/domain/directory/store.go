package directory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/platform/querier"
)

var ErrNotFound = errors.New("employee not found")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) EmployeeByID(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, email, full_name, COALESCE(department, ''), created_at
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID)

	var emp Employee
	err := row.Scan(&emp.ID, &emp.TenantID, &emp.Email, &emp.FullName, &emp.Department, &emp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) DisplayName(ctx context.Context, tenantID, employeeID string) (string, error) {
	var name string
	err := s.DB.QueryRow(ctx, `
    SELECT full_name FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// TeamStatus reports the department headcount and every colleague whose
// approved or pending leave overlaps the given window.
func (s *Store) TeamStatus(ctx context.Context, tenantID, employeeID string, start, end time.Time) (*TeamSnapshot, error) {
	emp, err := s.EmployeeByID(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}

	snapshot := &TeamSnapshot{Department: emp.Department, OnLeave: []TeamLeave{}}

	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE tenant_id = $1 AND department = $2
  `, tenantID, emp.Department).Scan(&snapshot.Headcount)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.full_name, lr.category, lr.start_date, lr.end_date, lr.status
    FROM leave_requests lr
    JOIN employees e ON e.id = lr.employee_id
    WHERE lr.tenant_id = $1
      AND e.department = $2
      AND e.id <> $3
      AND lr.status IN ('approved', 'escalated')
      AND lr.start_date <= $4
      AND lr.end_date >= $5
    ORDER BY lr.start_date
  `, tenantID, emp.Department, employeeID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tl TeamLeave
		var sd, ed time.Time
		if err := rows.Scan(&tl.EmployeeID, &tl.FullName, &tl.Category, &sd, &ed, &tl.Status); err != nil {
			return nil, err
		}
		tl.StartDate = sd.Format("2006-01-02")
		tl.EndDate = ed.Format("2006-01-02")
		snapshot.OnLeave = append(snapshot.OnLeave, tl)
	}
	return snapshot, rows.Err()
}
