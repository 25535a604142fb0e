package shifttoken

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// Binding 是一个有效令牌所绑定的员工及其商户
type Binding struct {
	Token      *domain.ShiftToken
	Employee   *domain.Employee
	EmployeeID int64
	BusinessID int64
}

// Validator 只读地检查令牌，不会消费令牌
type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

func (v *Validator) Validate(ctx context.Context, value string) (*Binding, error) {
	if value == "" {
		return nil, domain.Reject(domain.RejectNotFound)
	}

	token, err := v.store.GetShiftTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Reject(domain.RejectNotFound)
		}
		return nil, err
	}

	if token.IsUsed {
		return nil, domain.Reject(domain.RejectUsed)
	}
	if !token.UsableAt(v.now()) {
		return nil, domain.Reject(domain.RejectExpired)
	}

	employee, err := v.store.GetEmployeeByID(ctx, token.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Reject(domain.RejectNotFound)
		}
		return nil, err
	}
	// 员工停用后，之前发出的链接一并失效
	if !employee.IsActive {
		return nil, domain.Reject(domain.RejectNotFound)
	}

	return &Binding{
		Token:      token,
		Employee:   employee,
		EmployeeID: employee.ID,
		BusinessID: employee.BusinessID,
	}, nil
}

// ValidateFor 额外要求令牌的用途一致，用途不符的令牌视为不存在
func (v *Validator) ValidateFor(ctx context.Context, value string, purpose domain.TokenPurpose) (*Binding, error) {
	binding, err := v.Validate(ctx, value)
	if err != nil {
		return nil, err
	}
	if binding.Token.Purpose != purpose {
		return nil, domain.Reject(domain.RejectNotFound)
	}
	return binding, nil
}
