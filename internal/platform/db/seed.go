package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/platform/config"
)

var seedEmployees = []struct {
	Email      string
	FullName   string
	Department string
}{
	{"alice@example.com", "Alice Nguyen", "Engineering"},
	{"bob@example.com", "Bob Carter", "Engineering"},
	{"carol@example.com", "Carol Diaz", "Finance"},
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return err
	}

	if err := ensureOrgSettings(ctx, pool, tenantID, cfg.DefaultCountry); err != nil {
		return err
	}

	for _, emp := range seedEmployees {
		if err := ensureEmployee(ctx, pool, tenantID, emp.Email, emp.FullName, emp.Department); err != nil {
			return err
		}
	}

	return nil
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureOrgSettings(ctx context.Context, pool *pgxpool.Pool, tenantID, country string) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO org_settings (tenant_id, country_code, holiday_mode)
		 VALUES ($1, $2, 'auto')
		 ON CONFLICT (tenant_id) DO NOTHING`,
		tenantID, country)
	return err
}

func ensureEmployee(ctx context.Context, pool *pgxpool.Pool, tenantID, email, fullName, department string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return nil
	}

	err = pool.QueryRow(ctx,
		"INSERT INTO employees (tenant_id, email, full_name, department) VALUES ($1, $2, $3, $4) RETURNING id",
		tenantID, email, fullName, department).Scan(&id)
	return err
}
