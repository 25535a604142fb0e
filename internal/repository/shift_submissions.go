package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

func (r *Repository) ExistsShiftSubmission(ctx context.Context, employeeID int64, week domain.Week) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM shift_submissions
			WHERE employee_id = $1 AND week_start = $2 AND week_end = $3
		)
	`

	exists := false
	if err := r.dbpool.QueryRowContext(ctx, query, employeeID, week.Start, week.End).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// CreateShiftSubmissionWithToken 先写入提交记录再消费令牌，令牌已被使用时整个事务回滚
func (r *Repository) CreateShiftSubmissionWithToken(ctx context.Context, submission *domain.ShiftSubmission, tokenValue string, data domain.SubmittedData) error {
	shifts, err := json.Marshal(submission.Shifts)
	if err != nil {
		return err
	}
	raw, err := data.Marshal()
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			INSERT INTO shift_submissions (employee_id, week_start, week_end, shifts)
			VALUES ($1, $2, $3, $4)
			RETURNING id, status, submitted_at, version
		`

		args := []any{submission.EmployeeID, submission.WeekStart, submission.WeekEnd, shifts}
		dst := []any{&submission.ID, &submission.Status, &submission.SubmittedAt, &submission.Version}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
			return err
		}

		return consumeToken(ctx, tx, tokenValue, raw)
	})
}

func (r *Repository) GetShiftSubmissionsByBusinessAndWeek(ctx context.Context, businessID int64, week domain.Week) ([]*domain.ShiftSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		SELECT ss.id, ss.employee_id, ss.shifts, ss.status, ss.submitted_at, ss.version
		FROM shift_submissions ss
		JOIN employees e ON e.id = ss.employee_id
		WHERE e.business_id = $1 AND ss.week_start = $2 AND ss.week_end = $3
		ORDER BY ss.submitted_at
	`

	rows, err := r.dbpool.QueryContext(ctx, query, businessID, week.Start, week.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*domain.ShiftSubmission, 0)
	for rows.Next() {
		submission := &domain.ShiftSubmission{WeekStart: week.Start, WeekEnd: week.End}
		var shifts []byte
		dst := []any{&submission.ID, &submission.EmployeeID, &shifts, &submission.Status, &submission.SubmittedAt, &submission.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(shifts, &submission.Shifts); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *Repository) MarkShiftSubmissionReviewed(ctx context.Context, id int64, version int32) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		UPDATE shift_submissions
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	var newVersion int32
	if err := r.dbpool.QueryRowContext(ctx, query, domain.SubmissionStatusReviewed, id, version).Scan(&newVersion); err != nil {
		return 0, err
	}

	return newVersion, nil
}

func (r *Repository) GetShiftSubmissionByID(ctx context.Context, id int64) (*domain.ShiftSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	query := `
		SELECT employee_id, week_start, week_end, shifts, status, submitted_at, version
		FROM shift_submissions
		WHERE id = $1
	`

	submission := &domain.ShiftSubmission{ID: id}
	var shifts []byte
	dst := []any{&submission.EmployeeID, &submission.WeekStart, &submission.WeekEnd, &shifts, &submission.Status, &submission.SubmittedAt, &submission.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shifts, &submission.Shifts); err != nil {
		return nil, err
	}

	return submission, nil
}
