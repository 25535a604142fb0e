package shifttoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// Store 是令牌相关的持久化接口，由 repository.Repository 实现
type Store interface {
	GetEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetActiveShiftToken(ctx context.Context, employeeID int64, purpose domain.TokenPurpose, week *domain.Week, now time.Time) (*domain.ShiftToken, error)
	InsertShiftToken(ctx context.Context, token *domain.ShiftToken) error
	GetShiftTokenByValue(ctx context.Context, value string) (*domain.ShiftToken, error)
}

// TTLs 决定不同用途令牌的有效期
type TTLs struct {
	Weekly       time.Duration
	Permanent    time.Duration
	Registration time.Duration
}

func TTLsFromConfig(cfg *config.Config) TTLs {
	return TTLs{
		Weekly:       time.Duration(cfg.Token.WeeklyTTL) * time.Hour,
		Permanent:    time.Duration(cfg.Token.PermanentTTL) * time.Hour,
		Registration: time.Duration(cfg.Token.RegistrationTTL) * time.Hour,
	}
}

func (t TTLs) For(purpose domain.TokenPurpose, week *domain.Week) time.Duration {
	switch {
	case purpose == domain.TokenPurposeRegistration:
		return t.Registration
	case week != nil:
		return t.Weekly
	default:
		return t.Permanent
	}
}

type Issuer struct {
	store       Store
	ttls        TTLs
	maxAttempts int
	now         func() time.Time
	newValue    func() string
}

func NewIssuer(store Store, ttls TTLs, maxAttempts int) *Issuer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Issuer{
		store:       store,
		ttls:        ttls,
		maxAttempts: maxAttempts,
		now:         time.Now,
		newValue:    uuid.NewString,
	}
}

// Issue 按用途的默认有效期签发令牌
func (i *Issuer) Issue(ctx context.Context, employeeID int64, purpose domain.TokenPurpose, week *domain.Week) (*domain.ShiftToken, error) {
	return i.IssueWithTTL(ctx, employeeID, purpose, week, i.ttls.For(purpose, week))
}

// IssueWithTTL 优先返回同一员工、同一用途、同一周内未使用且未过期的令牌，没有时才生成新的。
// 令牌值冲突时换一个新值重试，最多 maxAttempts 次。
func (i *Issuer) IssueWithTTL(ctx context.Context, employeeID int64, purpose domain.TokenPurpose, week *domain.Week, ttl time.Duration) (*domain.ShiftToken, error) {
	if !purpose.Valid() {
		return nil, domain.IssuanceError(domain.ErrInvalidPurpose)
	}
	if purpose == domain.TokenPurposeRegistration {
		week = nil
	}
	if ttl <= 0 {
		return nil, domain.IssuanceError(fmt.Errorf("invalid ttl %s", ttl))
	}

	employee, err := i.store.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.IssuanceError(fmt.Errorf("employee %d not found", employeeID))
		}
		return nil, err
	}
	if !employee.IsActive {
		return nil, domain.IssuanceError(domain.ErrEmployeeInactive)
	}

	now := i.now()
	existing, err := i.store.GetActiveShiftToken(ctx, employeeID, purpose, week, now)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		token := &domain.ShiftToken{
			EmployeeID: employeeID,
			Value:      i.newValue(),
			Purpose:    purpose,
			ExpiresAt:  now.Add(ttl),
		}
		if week != nil {
			start, end := week.Start, week.End
			token.WeekStart, token.WeekEnd = &start, &end
		}

		err := i.store.InsertShiftToken(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, domain.ErrDuplicateTokenValue) {
			return nil, err
		}
	}

	return nil, domain.IssuanceError(domain.ErrDuplicateTokenValue)
}
