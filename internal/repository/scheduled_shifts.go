package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

const scheduledShiftColumns = `
	id, business_id, employee_id, branch_id, shift_date, start_time, end_time, status,
	is_archived, role_preference, notes, manager_override, overridden_by, created_at, version
`

func scanScheduledShift(row interface{ Scan(...any) error }) (*domain.ScheduledShift, error) {
	shift := &domain.ScheduledShift{}
	dst := []any{
		&shift.ID,
		&shift.BusinessID,
		&shift.EmployeeID,
		&shift.BranchID,
		&shift.ShiftDate,
		&shift.StartTime,
		&shift.EndTime,
		&shift.Status,
		&shift.IsArchived,
		&shift.RolePreference,
		&shift.Notes,
		&shift.ManagerOverride,
		&shift.OverriddenBy,
		&shift.CreatedAt,
		&shift.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *Repository) queryScheduledShifts(ctx context.Context, query string, args ...any) ([]*domain.ScheduledShift, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.ScheduledShift, 0)
	for rows.Next() {
		shift, err := scanScheduledShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// ExistsApprovedShiftInRange 判断商户在 week 内是否已经有审核通过的班次，即排班已发布
func (r *Repository) ExistsApprovedShiftInRange(ctx context.Context, businessID int64, week domain.Week) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_shifts
			WHERE business_id = $1
				AND shift_date BETWEEN $2 AND $3
				AND status = $4
				AND is_archived = FALSE
		)
	`

	exists := false
	if err := r.dbpool.QueryRowContext(ctx, query, businessID, week.Start, week.End, domain.ShiftStatusApproved).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// GetShiftsByEmployeeDateBranch 返回员工在同一天同一门店未归档的所有班次，不考虑具体时间段
func (r *Repository) GetShiftsByEmployeeDateBranch(ctx context.Context, employeeID int64, shiftDate time.Time, branchID int64) ([]*domain.ScheduledShift, error) {
	query := `SELECT ` + scheduledShiftColumns + `
		FROM scheduled_shifts
		WHERE employee_id = $1 AND shift_date = $2 AND branch_id = $3 AND is_archived = FALSE
		ORDER BY start_time
	`

	return r.queryScheduledShifts(ctx, query, employeeID, domain.TruncateDate(shiftDate), branchID)
}

func (r *Repository) GetScheduledShiftsByBusinessAndRange(ctx context.Context, businessID int64, week domain.Week) ([]*domain.ScheduledShift, error) {
	query := `SELECT ` + scheduledShiftColumns + `
		FROM scheduled_shifts
		WHERE business_id = $1 AND shift_date BETWEEN $2 AND $3 AND is_archived = FALSE
		ORDER BY shift_date, branch_id, start_time
	`

	return r.queryScheduledShifts(ctx, query, businessID, week.Start, week.End)
}

func (r *Repository) GetScheduledShiftByID(ctx context.Context, id int64) (*domain.ScheduledShift, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `SELECT ` + scheduledShiftColumns + ` FROM scheduled_shifts WHERE id = $1`

	return scanScheduledShift(r.dbpool.QueryRowContext(ctx, query, id))
}

func insertScheduledShift(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, shift *domain.ScheduledShift) error {
	query := `
		INSERT INTO scheduled_shifts (
			business_id,
			employee_id,
			branch_id,
			shift_date,
			start_time,
			end_time,
			status,
			role_preference,
			notes,
			manager_override,
			overridden_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_archived, created_at, version
	`

	params := []any{
		shift.BusinessID,
		shift.EmployeeID,
		shift.BranchID,
		domain.TruncateDate(shift.ShiftDate),
		shift.StartTime,
		shift.EndTime,
		shift.Status,
		shift.RolePreference,
		shift.Notes,
		shift.ManagerOverride,
		shift.OverriddenBy,
	}
	dst := []any{&shift.ID, &shift.IsArchived, &shift.CreatedAt, &shift.Version}
	return q.QueryRowContext(ctx, query, params...).Scan(dst...)
}

func (r *Repository) InsertScheduledShift(ctx context.Context, shift *domain.ScheduledShift) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	return insertScheduledShift(ctx, r.dbpool, shift)
}

// CreateShiftRequestWithToken 写入一条待审核的班次申请并消费令牌
func (r *Repository) CreateShiftRequestWithToken(ctx context.Context, shift *domain.ScheduledShift, tokenValue string, data domain.SubmittedData) error {
	raw, err := data.Marshal()
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertScheduledShift(ctx, tx, shift); err != nil {
			return err
		}
		return consumeToken(ctx, tx, tokenValue, raw)
	})
}

func (r *Repository) UpdateScheduledShift(ctx context.Context, shift *domain.ScheduledShift) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		UPDATE scheduled_shifts
		SET
			status = $1,
			is_archived = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	if err := r.dbpool.QueryRowContext(ctx, query, shift.Status, shift.IsArchived, shift.ID, shift.Version).Scan(&shift.Version); err != nil {
		return err
	}

	return nil
}
