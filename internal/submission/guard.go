package submission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/shifttoken"
)

// Store 由 repository.Repository 实现
type Store interface {
	ExistsShiftSubmission(ctx context.Context, employeeID int64, week domain.Week) (bool, error)
	ExistsApprovedShiftInRange(ctx context.Context, businessID int64, week domain.Week) (bool, error)
	GetBranchByID(ctx context.Context, id int64) (*domain.Branch, error)
	CreateShiftSubmissionWithToken(ctx context.Context, submission *domain.ShiftSubmission, tokenValue string, data domain.SubmittedData) error
	CreateShiftRequestWithToken(ctx context.Context, shift *domain.ScheduledShift, tokenValue string, data domain.SubmittedData) error
	RegisterEmployeeWithToken(ctx context.Context, employee *domain.Employee, tokenValue string, data domain.SubmittedData) error
}

type TokenValidator interface {
	ValidateFor(ctx context.Context, value string, purpose domain.TokenPurpose) (*shifttoken.Binding, error)
}

// Status 是某员工某一周能否提交的判断结果，两项检查互不影响，都会执行
type Status struct {
	Allowed             bool               `json:"canSubmit"`
	Reason              domain.BlockReason `json:"blockReason,omitempty"`
	HasSubmitted        bool               `json:"hasSubmitted"`
	IsSchedulePublished bool               `json:"isSchedulePublished"`
}

func (s Status) Err() error {
	if s.Allowed {
		return nil
	}
	return &domain.SubmissionBlocked{Reason: s.Reason}
}

type Guard struct {
	store     Store
	validator TokenValidator
}

func NewGuard(store Store, validator TokenValidator) *Guard {
	return &Guard{store: store, validator: validator}
}

// CanSubmit 的两次查询都不加锁，只是提示性的检查。
// 两个并发提交可能同时通过检查并各自写入一条记录，令牌本身仍然只会被消费一次。
func (g *Guard) CanSubmit(ctx context.Context, employeeID, businessID int64, week domain.Week) (Status, error) {
	submitted, err := g.store.ExistsShiftSubmission(ctx, employeeID, week)
	if err != nil {
		return Status{}, err
	}
	published, err := g.store.ExistsApprovedShiftInRange(ctx, businessID, week)
	if err != nil {
		return Status{}, err
	}

	status := Status{HasSubmitted: submitted, IsSchedulePublished: published, Allowed: true}
	switch {
	case submitted:
		status.Allowed, status.Reason = false, domain.BlockAlreadySubmitted
	case published:
		status.Allowed, status.Reason = false, domain.BlockSchedulePublished
	}

	return status, nil
}

// weekFor 返回令牌所绑定的周，不绑定周的令牌由调用方给出
func weekFor(binding *shifttoken.Binding, requested domain.Week) (domain.Week, error) {
	bound := binding.Token.Week()
	if bound == nil {
		return requested, nil
	}
	if !bound.Start.Equal(requested.Start) || !bound.End.Equal(requested.End) {
		return domain.Week{}, domain.ErrWeekMismatch
	}
	return *bound, nil
}

// Status 校验令牌后返回该周的提交状态，不消费令牌
func (g *Guard) Status(ctx context.Context, tokenValue string, week domain.Week) (*shifttoken.Binding, Status, error) {
	binding, err := g.validator.ValidateFor(ctx, tokenValue, domain.TokenPurposeShiftSubmission)
	if err != nil {
		return nil, Status{}, err
	}
	week, err = weekFor(binding, week)
	if err != nil {
		return nil, Status{}, err
	}

	status, err := g.CanSubmit(ctx, binding.EmployeeID, binding.BusinessID, week)
	if err != nil {
		return nil, Status{}, err
	}
	return binding, status, nil
}

type Receipt struct {
	Binding    *shifttoken.Binding
	Submission *domain.ShiftSubmission
}

// Submit 写入一周的排班意向并消费令牌。被阻止时不会写入任何数据。
func (g *Guard) Submit(ctx context.Context, tokenValue string, week domain.Week, requested []domain.RequestedShift) (*Receipt, error) {
	binding, status, err := g.Status(ctx, tokenValue, week)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}

	week, _ = weekFor(binding, week)
	shifts := make([]domain.RequestedShift, len(requested))
	copy(shifts, requested)
	for i := range shifts {
		if !week.Contains(shifts[i].ShiftDate) {
			return nil, domain.ErrShiftOutsideWeek
		}
		shifts[i].ShiftDate = domain.TruncateDate(shifts[i].ShiftDate)
		if shifts[i].BranchID != nil {
			if err := g.checkBranch(ctx, *shifts[i].BranchID, binding.BusinessID); err != nil {
				return nil, err
			}
		}
	}

	submission := &domain.ShiftSubmission{
		EmployeeID: binding.EmployeeID,
		WeekStart:  week.Start,
		WeekEnd:    week.End,
		Shifts:     shifts,
	}
	data := domain.NewWeeklyShiftsData(domain.WeeklyShiftsPayload{Week: week, Shifts: shifts})
	if err := g.store.CreateShiftSubmissionWithToken(ctx, submission, tokenValue, data); err != nil {
		return nil, consumeError(err)
	}

	return &Receipt{Binding: binding, Submission: submission}, nil
}

type RequestReceipt struct {
	Binding *shifttoken.Binding
	Shift   *domain.ScheduledShift
}

// SubmitShiftRequest 写入一条待审核的班次申请。不绑定周的令牌以班次日期所在的周做检查。
func (g *Guard) SubmitShiftRequest(ctx context.Context, tokenValue string, req domain.ShiftRequestPayload) (*RequestReceipt, error) {
	binding, err := g.validator.ValidateFor(ctx, tokenValue, domain.TokenPurposeShiftSubmission)
	if err != nil {
		return nil, err
	}

	req.ShiftDate = domain.TruncateDate(req.ShiftDate)
	week := domain.WeekOf(req.ShiftDate)
	if bound := binding.Token.Week(); bound != nil {
		if !bound.Contains(req.ShiftDate) {
			return nil, domain.ErrShiftOutsideWeek
		}
		week = *bound
	}

	status, err := g.CanSubmit(ctx, binding.EmployeeID, binding.BusinessID, week)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}

	if err := g.checkBranch(ctx, req.BranchPreference, binding.BusinessID); err != nil {
		return nil, err
	}

	employeeID := binding.EmployeeID
	shift := &domain.ScheduledShift{
		BusinessID:     binding.BusinessID,
		EmployeeID:     &employeeID,
		BranchID:       req.BranchPreference,
		ShiftDate:      req.ShiftDate,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         domain.ShiftStatusPending,
		RolePreference: req.RolePreference,
		Notes:          req.Notes,
	}
	if err := g.store.CreateShiftRequestWithToken(ctx, shift, tokenValue, domain.NewShiftRequestData(req)); err != nil {
		return nil, consumeError(err)
	}

	return &RequestReceipt{Binding: binding, Shift: shift}, nil
}

func (g *Guard) checkBranch(ctx context.Context, branchID, businessID int64) error {
	branch, err := g.store.GetBranchByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBranchNotInBusiness
		}
		return err
	}
	if branch.BusinessID != businessID {
		return domain.ErrBranchNotInBusiness
	}
	return nil
}

// consumeError 把并发中输掉的一方转换为“令牌已使用”
func consumeError(err error) error {
	if errors.Is(err, domain.ErrTokenConsumed) {
		return domain.Reject(domain.RejectUsed)
	}
	return err
}
