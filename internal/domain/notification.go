package domain

import (
	"encoding/json"
	"fmt"
)

type NotificationType string

const (
	NotifyShiftLink          NotificationType = "shift_link"
	NotifyRegistrationLink   NotificationType = "registration_link"
	NotifySubmissionReceived NotificationType = "submission_received"
	NotifyShiftAssigned      NotificationType = "shift_assigned"
)

type Notification struct {
	Type NotificationType `json:"type"`
	To   string           `json:"to"`
	Data any              `json:"data"`
}

type ShiftLinkData struct {
	FullName  string `json:"fullName"`
	URL       string `json:"url"`
	WeekStart string `json:"weekStart"`
	WeekEnd   string `json:"weekEnd"`
	ExpiresAt string `json:"expiresAt"`
}

type RegistrationLinkData struct {
	FullName     string `json:"fullName"`
	BusinessName string `json:"businessName"`
	URL          string `json:"url"`
	ExpiresAt    string `json:"expiresAt"`
}

type SubmissionReceivedData struct {
	FullName   string `json:"fullName"`
	WeekStart  string `json:"weekStart"`
	WeekEnd    string `json:"weekEnd"`
	ShiftCount int    `json:"shiftCount"`
}

type ShiftAssignedData struct {
	FullName        string `json:"fullName"`
	BranchName      string `json:"branchName"`
	ShiftDate       string `json:"shiftDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	ManagerOverride bool   `json:"managerOverride"`
}

// DecodeNotification 根据 type 把 data 解析成具体的结构体
func DecodeNotification(raw []byte) (*Notification, error) {
	var envelope struct {
		Type NotificationType `json:"type"`
		To   string           `json:"to"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	n := &Notification{Type: envelope.Type, To: envelope.To}
	var err error
	switch envelope.Type {
	case NotifyShiftLink:
		d := ShiftLinkData{}
		err = json.Unmarshal(envelope.Data, &d)
		n.Data = d
	case NotifyRegistrationLink:
		d := RegistrationLinkData{}
		err = json.Unmarshal(envelope.Data, &d)
		n.Data = d
	case NotifySubmissionReceived:
		d := SubmissionReceivedData{}
		err = json.Unmarshal(envelope.Data, &d)
		n.Data = d
	case NotifyShiftAssigned:
		d := ShiftAssignedData{}
		err = json.Unmarshal(envelope.Data, &d)
		n.Data = d
	default:
		return nil, fmt.Errorf("unsupported notification type %q", envelope.Type)
	}
	if err != nil {
		return nil, err
	}

	return n, nil
}
