package domain

import "time"

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusReviewed  SubmissionStatus = "reviewed"
)

// ShiftSubmission 是员工对某一周的排班意向，同一个 (员工, 周) 最多一条
type ShiftSubmission struct {
	ID          int64            `json:"id"`
	EmployeeID  int64            `json:"employeeID"`
	WeekStart   time.Time        `json:"weekStart"`
	WeekEnd     time.Time        `json:"weekEnd"`
	Shifts      []RequestedShift `json:"shifts"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submittedAt"`
	Version     int32            `json:"-"`
}
