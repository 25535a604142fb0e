package conflict

import (
	"context"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

type ShiftStore interface {
	GetShiftsByEmployeeDateBranch(ctx context.Context, employeeID int64, shiftDate time.Time, branchID int64) ([]*domain.ScheduledShift, error)
}

// Detector 把同一员工在同一天同一门店的任何未归档班次都视为冲突，不比较具体时间段
type Detector struct {
	store ShiftStore
}

func NewDetector(store ShiftStore) *Detector {
	return &Detector{store: store}
}

func (d *Detector) FindConflicts(ctx context.Context, employeeID int64, shiftDate time.Time, branchID int64) ([]*domain.ScheduledShift, error) {
	shifts, err := d.store.GetShiftsByEmployeeDateBranch(ctx, employeeID, domain.TruncateDate(shiftDate), branchID)
	if err != nil {
		return nil, err
	}

	conflicts := make([]*domain.ScheduledShift, 0, len(shifts))
	for _, s := range shifts {
		if s.IsArchived {
			continue
		}
		conflicts = append(conflicts, s)
	}

	return conflicts, nil
}

// ConflictsWith 返回与 shift 冲突的其他班次，不包括 shift 自身。未分配员工或已归档的班次不会冲突。
func (d *Detector) ConflictsWith(ctx context.Context, shift *domain.ScheduledShift) ([]*domain.ScheduledShift, error) {
	if shift.EmployeeID == nil || shift.IsArchived {
		return nil, nil
	}

	shifts, err := d.FindConflicts(ctx, *shift.EmployeeID, shift.ShiftDate, shift.BranchID)
	if err != nil {
		return nil, err
	}

	conflicts := make([]*domain.ScheduledShift, 0, len(shifts))
	for _, s := range shifts {
		if s.ID != shift.ID {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts, nil
}
