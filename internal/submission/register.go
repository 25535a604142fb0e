package submission

import (
	"context"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// Register 用注册令牌补全员工资料，资料更新与令牌消费在同一个事务中
func (g *Guard) Register(ctx context.Context, tokenValue string, payload domain.RegistrationPayload) (*domain.Employee, error) {
	binding, err := g.validator.ValidateFor(ctx, tokenValue, domain.TokenPurposeRegistration)
	if err != nil {
		return nil, err
	}

	employee := *binding.Employee
	employee.FullName = payload.FullName
	employee.Phone = payload.Phone
	employee.Email = payload.Email

	if err := g.store.RegisterEmployeeWithToken(ctx, &employee, tokenValue, domain.NewRegistrationData(payload)); err != nil {
		return nil, consumeError(err)
	}

	return &employee, nil
}
