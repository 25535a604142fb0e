package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type TokenPurpose string

const (
	TokenPurposeRegistration    TokenPurpose = "registration"
	TokenPurposeShiftSubmission TokenPurpose = "shift_submission"
)

// ShiftToken 是发给员工的一次性链接凭证，使用后保留作为审计记录，不会被删除
type ShiftToken struct {
	ID            int64          `json:"id"`
	EmployeeID    int64          `json:"employeeID"`
	Value         string         `json:"token"`
	Purpose       TokenPurpose   `json:"purpose"`
	WeekStart     *time.Time     `json:"weekStart"`
	WeekEnd       *time.Time     `json:"weekEnd"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	IsUsed        bool           `json:"isUsed"`
	UsedAt        *time.Time     `json:"usedAt"`
	SubmittedData *SubmittedData `json:"submittedData,omitempty"`
}

// UsableAt 当且仅当未使用且 now < ExpiresAt
func (t *ShiftToken) UsableAt(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}

func (t *ShiftToken) Week() *Week {
	if t.WeekStart == nil || t.WeekEnd == nil {
		return nil
	}
	return &Week{Start: TruncateDate(*t.WeekStart), End: TruncateDate(*t.WeekEnd)}
}

type SubmittedDataKind string

const (
	SubmittedWeeklyShifts SubmittedDataKind = "weekly_shifts"
	SubmittedShiftRequest SubmittedDataKind = "shift_request"
	SubmittedRegistration SubmittedDataKind = "registration"
)

// SubmittedData 是令牌被使用时记录下来的内容，Kind 决定哪一个字段有值
type SubmittedData struct {
	Kind         SubmittedDataKind    `json:"kind"`
	WeeklyShifts *WeeklyShiftsPayload `json:"weeklyShifts,omitempty"`
	ShiftRequest *ShiftRequestPayload `json:"shiftRequest,omitempty"`
	Registration *RegistrationPayload `json:"registration,omitempty"`
}

type RequestedShift struct {
	ShiftDate time.Time `json:"shiftDate"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	BranchID  *int64    `json:"branchID,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type WeeklyShiftsPayload struct {
	Week   Week             `json:"week"`
	Shifts []RequestedShift `json:"shifts"`
}

type ShiftRequestPayload struct {
	ShiftDate        time.Time `json:"shiftDate"`
	StartTime        string    `json:"startTime"`
	EndTime          string    `json:"endTime"`
	BranchPreference int64     `json:"branchPreference"`
	RolePreference   string    `json:"rolePreference,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

type RegistrationPayload struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func NewWeeklyShiftsData(p WeeklyShiftsPayload) SubmittedData {
	return SubmittedData{Kind: SubmittedWeeklyShifts, WeeklyShifts: &p}
}

func NewShiftRequestData(p ShiftRequestPayload) SubmittedData {
	return SubmittedData{Kind: SubmittedShiftRequest, ShiftRequest: &p}
}

func NewRegistrationData(p RegistrationPayload) SubmittedData {
	return SubmittedData{Kind: SubmittedRegistration, Registration: &p}
}

func (d SubmittedData) Validate() error {
	set := 0
	for _, ok := range []bool{d.WeeklyShifts != nil, d.ShiftRequest != nil, d.Registration != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.New("submitted data must carry exactly one payload")
	}

	switch d.Kind {
	case SubmittedWeeklyShifts:
		if d.WeeklyShifts == nil {
			return fmt.Errorf("kind %s without weekly shifts payload", d.Kind)
		}
	case SubmittedShiftRequest:
		if d.ShiftRequest == nil {
			return fmt.Errorf("kind %s without shift request payload", d.Kind)
		}
	case SubmittedRegistration:
		if d.Registration == nil {
			return fmt.Errorf("kind %s without registration payload", d.Kind)
		}
	default:
		return fmt.Errorf("unknown submitted data kind %q", d.Kind)
	}
	return nil
}

func (d SubmittedData) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

func UnmarshalSubmittedData(raw []byte) (*SubmittedData, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	d := &SubmittedData{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (p TokenPurpose) Valid() bool {
	return p == TokenPurposeRegistration || p == TokenPurposeShiftSubmission
}
