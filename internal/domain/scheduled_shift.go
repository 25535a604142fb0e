package domain

import "time"

type ShiftStatus string

const (
	ShiftStatusPending  ShiftStatus = "pending"
	ShiftStatusApproved ShiftStatus = "approved"
	ShiftStatusRejected ShiftStatus = "rejected"
)

// ScheduledShift 是具体的排班，EmployeeID 为空表示尚未分配
type ScheduledShift struct {
	ID              int64       `json:"id"`
	BusinessID      int64       `json:"businessID"`
	EmployeeID      *int64      `json:"employeeID"`
	BranchID        int64       `json:"branchID"`
	ShiftDate       time.Time   `json:"shiftDate"`
	StartTime       string      `json:"startTime"`
	EndTime         string      `json:"endTime"`
	Status          ShiftStatus `json:"status"`
	IsArchived      bool        `json:"isArchived"`
	RolePreference  string      `json:"rolePreference"`
	Notes           string      `json:"notes"`
	ManagerOverride bool        `json:"managerOverride"`
	OverriddenBy    *int64      `json:"overriddenBy"`
	CreatedAt       time.Time   `json:"createdAt"`
	Version         int32       `json:"-"`
}
