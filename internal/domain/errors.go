package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIssuance            = errors.New("token issuance failed")
	ErrDuplicateTokenValue = errors.New("token value already exists")
	ErrTokenConsumed       = errors.New("token already consumed")
	ErrOverrideRejected    = errors.New("manager code rejected")
	ErrOverrideNotFound    = errors.New("pending override not found or expired")
	ErrVersionConflict     = errors.New("record was modified concurrently")
	ErrShiftConflict       = errors.New("employee already has a shift on that date and branch")

	ErrInvalidPurpose        = errors.New("unknown token purpose")
	ErrWeekMismatch          = errors.New("week does not match the token")
	ErrShiftOutsideWeek      = errors.New("shift date outside of the week")
	ErrBranchNotInBusiness   = errors.New("branch does not belong to the business")
	ErrEmployeeNotInBusiness = errors.New("employee does not belong to the business")
	ErrEmployeeInactive      = errors.New("employee is not active")
	ErrEmployeeExists        = errors.New("employee phone already registered in the business")
)

type RejectionReason string

const (
	RejectNotFound RejectionReason = "not_found"
	RejectUsed     RejectionReason = "used"
	RejectExpired  RejectionReason = "expired"
)

type TokenRejection struct {
	Reason RejectionReason
}

func (e *TokenRejection) Error() string {
	return fmt.Sprintf("token rejected: %s", e.Reason)
}

func Reject(reason RejectionReason) error {
	return &TokenRejection{Reason: reason}
}

// RejectionReasonOf 返回 err 链中的拒绝原因
func RejectionReasonOf(err error) (RejectionReason, bool) {
	var rej *TokenRejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

type BlockReason string

const (
	BlockAlreadySubmitted  BlockReason = "already_submitted"
	BlockSchedulePublished BlockReason = "schedule_published"
)

type SubmissionBlocked struct {
	Reason BlockReason
}

func (e *SubmissionBlocked) Error() string {
	return fmt.Sprintf("submission blocked: %s", e.Reason)
}

func IssuanceError(cause error) error {
	return fmt.Errorf("%w: %w", ErrIssuance, cause)
}
