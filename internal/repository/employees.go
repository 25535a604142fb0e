package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

const employeePhoneConstraint = "employees_business_id_phone_key"

func (r *Repository) GetEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error) {
	query := `
		SELECT business_id, full_name, phone, email, is_active, registered, created_at, version
		FROM employees WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	employee := &domain.Employee{ID: id}
	dst := []any{
		&employee.BusinessID,
		&employee.FullName,
		&employee.Phone,
		&employee.Email,
		&employee.IsActive,
		&employee.Registered,
		&employee.CreatedAt,
		&employee.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return employee, nil
}

func (r *Repository) GetEmployeesByBusinessID(ctx context.Context, businessID int64, activeOnly bool) ([]*domain.Employee, error) {
	query := `
		SELECT id, full_name, phone, email, is_active, registered, created_at, version
		FROM employees
		WHERE business_id = $1 AND ($2 = FALSE OR is_active = TRUE)
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	for rows.Next() {
		employee := &domain.Employee{BusinessID: businessID}
		dst := []any{
			&employee.ID,
			&employee.FullName,
			&employee.Phone,
			&employee.Email,
			&employee.IsActive,
			&employee.Registered,
			&employee.CreatedAt,
			&employee.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) CreateEmployee(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (business_id, full_name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, registered, created_at, version
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	args := []any{employee.BusinessID, employee.FullName, employee.Phone, employee.Email}
	dst := []any{&employee.ID, &employee.IsActive, &employee.Registered, &employee.CreatedAt, &employee.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == employeePhoneConstraint {
			return domain.ErrEmployeeExists
		}
		return err
	}

	return nil
}

// RegisterEmployeeWithToken 更新员工资料并消费注册令牌，两者在同一个事务中
func (r *Repository) RegisterEmployeeWithToken(ctx context.Context, employee *domain.Employee, tokenValue string, data domain.SubmittedData) error {
	raw, err := data.Marshal()
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			UPDATE employees
			SET
				full_name = $1,
				phone = $2,
				email = $3,
				registered = TRUE,
				version = version + 1
			WHERE id = $4 AND version = $5
			RETURNING version
		`

		args := []any{employee.FullName, employee.Phone, employee.Email, employee.ID, employee.Version}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&employee.Version); err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrVersionConflict
			}
			return err
		}
		employee.Registered = true

		return consumeToken(ctx, tx, tokenValue, raw)
	})
}
