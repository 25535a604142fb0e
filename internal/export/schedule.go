package export

import (
	"io"
	"sort"
	"strconv"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	ShiftSheet      = "排班表"
	SubmissionSheet = "排班意向"
)

var statusLabels = map[domain.ShiftStatus]string{
	domain.ShiftStatusPending:  "待审核",
	domain.ShiftStatusApproved: "已通过",
	domain.ShiftStatusRejected: "已拒绝",
}

// WeeklySchedule 是导出一周排班所需的数据，名称查不到时导出 ID
type WeeklySchedule struct {
	Week        domain.Week
	Shifts      []*domain.ScheduledShift
	Submissions []*domain.ShiftSubmission
	Employees   map[int64]*domain.Employee
	Branches    map[int64]*domain.Branch
}

func (s *WeeklySchedule) employeeName(id *int64) string {
	if id == nil {
		return "未分配"
	}
	if e, ok := s.Employees[*id]; ok {
		return e.FullName
	}
	return "#" + strconv.FormatInt(*id, 10)
}

func (s *WeeklySchedule) branchName(id int64) string {
	if b, ok := s.Branches[id]; ok {
		return b.Name
	}
	return "#" + strconv.FormatInt(id, 10)
}

func (s *WeeklySchedule) Write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ShiftSheet); err != nil {
		return err
	}
	if err := s.writeShifts(f); err != nil {
		return err
	}
	if _, err := f.NewSheet(SubmissionSheet); err != nil {
		return err
	}
	if err := s.writeSubmissions(f); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func (s *WeeklySchedule) writeShifts(f *excelize.File) error {
	if err := writeRow(f, ShiftSheet, 1, "周", s.Week.String()); err != nil {
		return err
	}
	if err := writeRow(f, ShiftSheet, 2, "日期", "门店", "员工", "开始", "结束", "状态", "店长确认", "岗位", "备注"); err != nil {
		return err
	}

	shifts := make([]*domain.ScheduledShift, len(s.Shifts))
	copy(shifts, s.Shifts)
	sort.SliceStable(shifts, func(i, j int) bool {
		if !shifts[i].ShiftDate.Equal(shifts[j].ShiftDate) {
			return shifts[i].ShiftDate.Before(shifts[j].ShiftDate)
		}
		if shifts[i].BranchID != shifts[j].BranchID {
			return shifts[i].BranchID < shifts[j].BranchID
		}
		return shifts[i].StartTime < shifts[j].StartTime
	})

	for i, shift := range shifts {
		override := ""
		if shift.ManagerOverride {
			override = "是"
		}
		if err := writeRow(f, ShiftSheet, i+3,
			shift.ShiftDate.Format(domain.DateLayout),
			s.branchName(shift.BranchID),
			s.employeeName(shift.EmployeeID),
			shift.StartTime,
			shift.EndTime,
			statusLabels[shift.Status],
			override,
			shift.RolePreference,
			shift.Notes,
		); err != nil {
			return err
		}
	}

	return f.SetColWidth(ShiftSheet, "A", "I", 14)
}

func (s *WeeklySchedule) writeSubmissions(f *excelize.File) error {
	if err := writeRow(f, SubmissionSheet, 1, "员工", "日期", "开始", "结束", "门店", "备注", "提交时间"); err != nil {
		return err
	}

	row := 2
	for _, sub := range s.Submissions {
		employeeID := sub.EmployeeID
		for _, shift := range sub.Shifts {
			branch := ""
			if shift.BranchID != nil {
				branch = s.branchName(*shift.BranchID)
			}
			if err := writeRow(f, SubmissionSheet, row,
				s.employeeName(&employeeID),
				shift.ShiftDate.Format(domain.DateLayout),
				shift.StartTime,
				shift.EndTime,
				branch,
				shift.Notes,
				sub.SubmittedAt.Format("2006-01-02 15:04"),
			); err != nil {
				return err
			}
			row++
		}
	}

	return f.SetColWidth(SubmissionSheet, "A", "G", 14)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
