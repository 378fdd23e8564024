package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

const caseColumns = `
	id
  , case_number
  , status
  , assigned_to
  , assigned_role
  , customer_id
  , loan_amount
  , data
  , created_at
  , updated_at
`

// CaseRepository handles case-related database operations.
type CaseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`

	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrCaseNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan case: %w", err)
	}

	return c, nil
}

func (r *CaseRepository) Save(ctx context.Context, c *models.Case) error {
	now := time.Now().UTC()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	c.UpdatedAt = now

	data, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal case data: %w", err)
	}

	query := `
		INSERT INTO cases (id, case_number, status, assigned_to, assigned_role, customer_id, loan_amount, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			case_number = EXCLUDED.case_number,
			status = EXCLUDED.status,
			assigned_to = EXCLUDED.assigned_to,
			assigned_role = EXCLUDED.assigned_role,
			customer_id = EXCLUDED.customer_id,
			loan_amount = EXCLUDED.loan_amount,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.CaseNumber, c.Status, c.AssignedTo, c.AssignedRole,
		c.CustomerID, c.LoanAmount, data, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save case %s: %w", c.ID, err)
	}

	return nil
}

func (r *CaseRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update case %s status: %w", id, err)
	}

	return checkAffected(result, persistence.ErrCaseNotFound)
}

func (r *CaseRepository) Assign(ctx context.Context, id, userID, role string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cases SET assigned_to = $2, assigned_role = $3, updated_at = NOW() WHERE id = $1`,
		id, userID, role)
	if err != nil {
		return fmt.Errorf("failed to assign case %s: %w", id, err)
	}

	return checkAffected(result, persistence.ErrCaseNotFound)
}

func (r *CaseRepository) ListByStatus(ctx context.Context, status string) ([]*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE status = $1 ORDER BY created_at`

	return r.list(ctx, query, status)
}

func (r *CaseRepository) ListWithoutInstance(ctx context.Context) ([]*models.Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM cases c
		WHERE NOT EXISTS (
			SELECT 1 FROM workflow_instances wi WHERE wi.case_id = c.id
		)
		ORDER BY created_at
	`

	return r.list(ctx, query)
}

func (r *CaseRepository) list(ctx context.Context, query string, args ...any) ([]*models.Case, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	cases := make([]*models.Case, 0)

	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}

		cases = append(cases, c)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}

	return cases, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c    models.Case
		data []byte
	)

	err := row.Scan(&c.ID, &c.CaseNumber, &c.Status, &c.AssignedTo, &c.AssignedRole,
		&c.CustomerID, &c.LoanAmount, &data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		err = json.Unmarshal(data, &c.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal case data: %w", err)
		}
	}

	return &c, nil
}

func checkAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
