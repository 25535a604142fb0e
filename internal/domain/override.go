package domain

import "time"

type OverrideState string

const (
	OverrideIdle             OverrideState = "idle"
	OverrideConflictDetected OverrideState = "conflict_detected"
	OverrideAwaitingCode     OverrideState = "awaiting_code"
	OverrideAccepted         OverrideState = "accepted"
	OverrideRejected         OverrideState = "rejected"
)

// CompetingShift 是冲突提示里展示的已有班次
type CompetingShift struct {
	ShiftID   int64  `json:"shiftID"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type OverrideContext struct {
	EmployeeID      int64            `json:"employeeID"`
	EmployeeName    string           `json:"employeeName"`
	ShiftDate       time.Time        `json:"shiftDate"`
	BranchID        int64            `json:"branchID"`
	BranchName      string           `json:"branchName"`
	CompetingShifts []CompetingShift `json:"competingShifts"`
	ProposedStart   string           `json:"proposedStart"`
	ProposedEnd     string           `json:"proposedEnd"`
}

// PendingOverride 是等待店长输入授权码的一次分配，只存在于 redis 中
type PendingOverride struct {
	ID          string          `json:"id"`
	State       OverrideState   `json:"state"`
	Context     OverrideContext `json:"context"`
	Shift       ScheduledShift  `json:"shift"`
	RequestedBy int64           `json:"requestedBy"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}
