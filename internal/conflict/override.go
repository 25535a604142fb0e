package conflict

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// AssignStore 由 repository.Repository 实现
type AssignStore interface {
	ShiftStore
	GetEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetBranchByID(ctx context.Context, id int64) (*domain.Branch, error)
	InsertScheduledShift(ctx context.Context, shift *domain.ScheduledShift) error
}

// Assignment 要么是已经写入的班次，要么是一个等待店长授权码的冲突
type Assignment struct {
	Shift    *domain.ScheduledShift  `json:"shift,omitempty"`
	Conflict bool                    `json:"conflict"`
	Override *domain.PendingOverride `json:"override,omitempty"`
}

type Decision struct {
	Accepted bool                   `json:"accepted"`
	State    domain.OverrideState   `json:"state"`
	Attempts int                    `json:"attempts"`
	Shift    *domain.ScheduledShift `json:"shift,omitempty"`
}

func (d *Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return domain.ErrOverrideRejected
}

// OverrideFlow 的状态流转：Idle → ConflictDetected → AwaitingCode → Accepted | Rejected → Idle。
// AwaitingCode 保存在 PendingStore 中，超过 ttl 后自动回到 Idle。
type OverrideFlow struct {
	store    AssignStore
	detector *Detector
	pending  PendingStore
	checker  CodeChecker
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
}

func NewOverrideFlow(store AssignStore, pending PendingStore, checker CodeChecker, ttl time.Duration) *OverrideFlow {
	return &OverrideFlow{
		store:    store,
		detector: NewDetector(store),
		pending:  pending,
		checker:  checker,
		ttl:      ttl,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Assign 没有冲突时直接写入班次，有冲突时只生成待授权记录，不写入任何班次
func (f *OverrideFlow) Assign(ctx context.Context, shift *domain.ScheduledShift, requestedBy int64) (*Assignment, error) {
	shift.ShiftDate = domain.TruncateDate(shift.ShiftDate)
	shift.ManagerOverride, shift.OverriddenBy = false, nil

	branch, err := f.store.GetBranchByID(ctx, shift.BranchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBranchNotInBusiness
		}
		return nil, err
	}
	if branch.BusinessID != shift.BusinessID {
		return nil, domain.ErrBranchNotInBusiness
	}

	// 未分配员工的班次不存在冲突
	if shift.EmployeeID == nil {
		if err := f.store.InsertScheduledShift(ctx, shift); err != nil {
			return nil, err
		}
		return &Assignment{Shift: shift}, nil
	}

	employee, err := f.store.GetEmployeeByID(ctx, *shift.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotInBusiness
		}
		return nil, err
	}
	if employee.BusinessID != shift.BusinessID {
		return nil, domain.ErrEmployeeNotInBusiness
	}
	if !employee.IsActive {
		return nil, domain.ErrEmployeeInactive
	}

	conflicts, err := f.detector.FindConflicts(ctx, employee.ID, shift.ShiftDate, shift.BranchID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		if err := f.store.InsertScheduledShift(ctx, shift); err != nil {
			return nil, err
		}
		return &Assignment{Shift: shift}, nil
	}

	pending, err := f.RequestOverride(ctx, OverrideContextFor(employee, branch, shift, conflicts), shift, requestedBy)
	if err != nil {
		return nil, err
	}
	return &Assignment{Conflict: true, Override: pending}, nil
}

func OverrideContextFor(employee *domain.Employee, branch *domain.Branch, shift *domain.ScheduledShift, conflicts []*domain.ScheduledShift) domain.OverrideContext {
	competing := make([]domain.CompetingShift, 0, len(conflicts))
	for _, c := range conflicts {
		competing = append(competing, domain.CompetingShift{ShiftID: c.ID, StartTime: c.StartTime, EndTime: c.EndTime})
	}

	return domain.OverrideContext{
		EmployeeID:      employee.ID,
		EmployeeName:    employee.FullName,
		ShiftDate:       shift.ShiftDate,
		BranchID:        branch.ID,
		BranchName:      branch.Name,
		CompetingShifts: competing,
		ProposedStart:   shift.StartTime,
		ProposedEnd:     shift.EndTime,
	}
}

// RequestOverride 记录冲突上下文并进入 AwaitingCode 状态
func (f *OverrideFlow) RequestOverride(ctx context.Context, conflict domain.OverrideContext, shift *domain.ScheduledShift, requestedBy int64) (*domain.PendingOverride, error) {
	now := f.now()
	pending := &domain.PendingOverride{
		ID:          f.newID(),
		State:       domain.OverrideAwaitingCode,
		Context:     conflict,
		Shift:       *shift,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		ExpiresAt:   now.Add(f.ttl),
	}

	if err := f.pending.Save(ctx, pending, f.ttl); err != nil {
		return nil, err
	}
	return pending, nil
}

func (f *OverrideFlow) Pending(ctx context.Context, id string) (*domain.PendingOverride, error) {
	return f.pending.Get(ctx, id)
}

// Confirm 授权码正确时写入班次并标记为店长强制分配；授权码错误时记录次数，待授权记录保持不变，可以重试
func (f *OverrideFlow) Confirm(ctx context.Context, id, code string, confirmedBy int64) (*Decision, error) {
	pending, err := f.pending.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !f.checker.Check(code) {
		pending.Attempts++
		if err := f.pending.Update(ctx, pending); err != nil {
			return nil, err
		}
		return &Decision{Accepted: false, State: domain.OverrideRejected, Attempts: pending.Attempts}, nil
	}

	// 并发确认时只有一个请求能取到记录
	pending, err = f.pending.Take(ctx, id)
	if err != nil {
		return nil, err
	}

	shift := pending.Shift
	shift.ManagerOverride = true
	shift.OverriddenBy = &confirmedBy
	if err := f.store.InsertScheduledShift(ctx, &shift); err != nil {
		f.restore(ctx, pending)
		return nil, err
	}

	return &Decision{Accepted: true, State: domain.OverrideAccepted, Attempts: pending.Attempts + 1, Shift: &shift}, nil
}

// restore 在写入失败后放回已取出的待授权记录，保留原来的过期时间，店长可以重新确认
func (f *OverrideFlow) restore(ctx context.Context, pending *domain.PendingOverride) {
	remaining := pending.ExpiresAt.Sub(f.now())
	if remaining <= 0 {
		return
	}
	if err := f.pending.Save(context.WithoutCancel(ctx), pending, remaining); err != nil {
		slog.Error("无法恢复待授权记录", "id", pending.ID, "error", err)
	}
}

// Cancel 放弃待授权的分配，状态回到 Idle
func (f *OverrideFlow) Cancel(ctx context.Context, id string) error {
	return f.pending.Delete(ctx, id)
}
