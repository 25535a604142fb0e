package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

const tokenValueConstraint = "shift_tokens_token_value_key"

func (r *Repository) InsertShiftToken(ctx context.Context, token *domain.ShiftToken) error {
	query := `
		INSERT INTO shift_tokens (employee_id, token_value, purpose, week_start, week_end, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, is_used
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	args := []any{token.EmployeeID, token.Value, token.Purpose, token.WeekStart, token.WeekEnd, token.ExpiresAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&token.ID, &token.CreatedAt, &token.IsUsed); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == tokenValueConstraint {
			return domain.ErrDuplicateTokenValue
		}
		return err
	}

	return nil
}

func (r *Repository) GetShiftTokenByValue(ctx context.Context, value string) (*domain.ShiftToken, error) {
	query := `
		SELECT id, employee_id, purpose, week_start, week_end, created_at, expires_at, is_used, used_at, submitted_data
		FROM shift_tokens
		WHERE token_value = $1
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	token := &domain.ShiftToken{Value: value}
	var raw []byte
	dst := []any{
		&token.ID,
		&token.EmployeeID,
		&token.Purpose,
		&token.WeekStart,
		&token.WeekEnd,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.IsUsed,
		&token.UsedAt,
		&raw,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, value).Scan(dst...); err != nil {
		return nil, err
	}

	data, err := domain.UnmarshalSubmittedData(raw)
	if err != nil {
		return nil, err
	}
	token.SubmittedData = data

	return token, nil
}

// GetActiveShiftToken 查找同一员工、同一用途、同一周内仍然可用的令牌，week 为空时只匹配不绑定周的令牌
func (r *Repository) GetActiveShiftToken(ctx context.Context, employeeID int64, purpose domain.TokenPurpose, week *domain.Week, now time.Time) (*domain.ShiftToken, error) {
	query := `
		SELECT id, token_value, week_start, week_end, created_at, expires_at
		FROM shift_tokens
		WHERE employee_id = $1
			AND purpose = $2
			AND week_start IS NOT DISTINCT FROM $3
			AND week_end IS NOT DISTINCT FROM $4
			AND is_used = FALSE
			AND expires_at > $5
		ORDER BY expires_at DESC
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout())
	defer cancel()

	var weekStart, weekEnd *time.Time
	if week != nil {
		weekStart, weekEnd = &week.Start, &week.End
	}

	token := &domain.ShiftToken{EmployeeID: employeeID, Purpose: purpose}
	dst := []any{&token.ID, &token.Value, &token.WeekStart, &token.WeekEnd, &token.CreatedAt, &token.ExpiresAt}
	if err := r.dbpool.QueryRowContext(ctx, query, employeeID, purpose, weekStart, weekEnd, now).Scan(dst...); err != nil {
		return nil, err
	}

	return token, nil
}

// consumeToken 只在 is_used = FALSE 时把令牌标记为已使用，没有命中任何行说明令牌已被其他请求抢先使用
func consumeToken(ctx context.Context, tx *sql.Tx, tokenValue string, submittedData []byte) error {
	query := `
		UPDATE shift_tokens
		SET is_used = TRUE, used_at = NOW(), submitted_data = $2
		WHERE token_value = $1 AND is_used = FALSE
	`

	res, err := tx.ExecContext(ctx, query, tokenValue, submittedData)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTokenConsumed
	}

	return nil
}
