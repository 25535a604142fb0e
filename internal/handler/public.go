package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/utils"
)

// ValidateToken 只检查令牌，不会消费令牌，可以反复调用
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	binding, err := h.tokens.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	data := map[string]any{
		"employeeID":   binding.EmployeeID,
		"businessID":   binding.BusinessID,
		"employeeName": binding.Employee.FullName,
		"purpose":      binding.Token.Purpose,
		"expiresAt":    binding.Token.ExpiresAt,
		"week":         binding.Token.Week(),
	}
	h.successResponse(w, r, "链接有效", data)
}

func (h *Handler) GetSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string `json:"token" validate:"required"`
		WeekStart string `json:"weekStart" validate:"required"`
		WeekEnd   string `json:"weekEnd" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	week, err := domain.ParseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	binding, status, err := h.guard.Status(r.Context(), req.Token, week)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	data := map[string]any{
		"canSubmit":           status.Allowed,
		"isBlocked":           !status.Allowed,
		"blockReason":         status.Reason,
		"hasSubmitted":        status.HasSubmitted,
		"isSchedulePublished": status.IsSchedulePublished,
		"employeeName":        binding.Employee.FullName,
		"businessID":          binding.BusinessID,
	}
	if !status.Allowed {
		data["message"] = blockMessages[status.Reason]
	}
	h.successResponse(w, r, "获取提交状态成功", data)
}

type requestedShiftBody struct {
	ShiftDate string `json:"shiftDate" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	BranchID  *int64 `json:"branchID"`
	Notes     string `json:"notes" validate:"max=255"`
}

func (h *Handler) SubmitWeeklyShifts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string               `json:"token" validate:"required"`
		WeekStart string               `json:"weekStart" validate:"required"`
		WeekEnd   string               `json:"weekEnd" validate:"required"`
		Shifts    []requestedShiftBody `json:"shifts" validate:"required,min=1,max=21,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	week, err := domain.ParseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	shifts := make([]domain.RequestedShift, 0, len(req.Shifts))
	for _, s := range req.Shifts {
		date, err := utils.ParseDate(s.ShiftDate)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		shifts = append(shifts, domain.RequestedShift{ShiftDate: date, StartTime: s.StartTime, EndTime: s.EndTime, BranchID: s.BranchID, Notes: s.Notes})
	}
	shifts, err = utils.ValidateRequestedShifts(week, shifts)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	receipt, err := h.guard.Submit(r.Context(), req.Token, week, shifts)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.notifier.Publish(r.Context(), domain.Notification{
		Type: domain.NotifySubmissionReceived,
		To:   receipt.Binding.Employee.Email,
		Data: domain.SubmissionReceivedData{
			FullName:   receipt.Binding.Employee.FullName,
			WeekStart:  receipt.Submission.WeekStart.Format(domain.DateLayout),
			WeekEnd:    receipt.Submission.WeekEnd.Format(domain.DateLayout),
			ShiftCount: len(receipt.Submission.Shifts),
		},
	})

	h.successResponse(w, r, "提交排班意向成功", receipt.Submission)
}

func (h *Handler) SubmitShiftRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token            string `json:"token" validate:"required"`
		ShiftDate        string `json:"shiftDate" validate:"required"`
		StartTime        string `json:"startTime" validate:"required"`
		EndTime          string `json:"endTime" validate:"required"`
		BranchPreference int64  `json:"branchPreference" validate:"required"`
		RolePreference   string `json:"rolePreference" validate:"max=50"`
		Notes            string `json:"notes" validate:"max=255"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := utils.ParseDate(req.ShiftDate)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	start, end, err := utils.ValidateShiftTime(req.StartTime, req.EndTime)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	receipt, err := h.guard.SubmitShiftRequest(r.Context(), req.Token, domain.ShiftRequestPayload{
		ShiftDate:        date,
		StartTime:        start,
		EndTime:          end,
		BranchPreference: req.BranchPreference,
		RolePreference:   req.RolePreference,
		Notes:            req.Notes,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.notifier.Publish(r.Context(), domain.Notification{
		Type: domain.NotifySubmissionReceived,
		To:   receipt.Binding.Employee.Email,
		Data: domain.SubmissionReceivedData{
			FullName:   receipt.Binding.Employee.FullName,
			WeekStart:  date.Format(domain.DateLayout),
			WeekEnd:    date.Format(domain.DateLayout),
			ShiftCount: 1,
		},
	})

	h.successResponse(w, r, "提交班次申请成功", map[string]any{"success": true, "shift": receipt.Shift})
}

func (h *Handler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token" validate:"required"`
		FullName string `json:"fullName" validate:"required,max=50"`
		Phone    string `json:"phone" validate:"required,e164|numeric"`
		Email    string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee, err := h.guard.Register(r.Context(), req.Token, domain.RegistrationPayload{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	// 注册完成后立即发放长期排班链接，失败不影响注册结果
	if token, err := h.issuer.Issue(r.Context(), employee.ID, domain.TokenPurposeShiftSubmission, nil); err != nil {
		slog.Warn("注册后生成排班链接失败", "employeeID", employee.ID, "error", err)
	} else {
		h.notifyToken(r, employee, token, h.links.For(token))
	}

	h.successResponse(w, r, "注册成功", map[string]any{"employeeID": employee.ID, "fullName": employee.FullName, "registeredAt": time.Now()})
}
