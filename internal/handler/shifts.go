package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/export"
	"github.com/opsdesk/shiftdesk/backend/internal/utils"
)

// rangeQuery 读取 businessID 以及日期范围，并检查当前用户能否访问该商户
func (h *Handler) rangeQuery(w http.ResponseWriter, r *http.Request, fromKey, toKey string) (int64, domain.Week, bool) {
	q := r.URL.Query()
	businessID, err := strconv.ParseInt(q.Get("businessID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "商户ID无效")
		return 0, domain.Week{}, false
	}
	if !h.canAccessBusiness(w, r, businessID) {
		return 0, domain.Week{}, false
	}

	week, err := domain.ParseWeek(q.Get(fromKey), q.Get(toKey))
	if err != nil {
		h.badRequest(w, r, err)
		return 0, domain.Week{}, false
	}

	return businessID, week, true
}

func (h *Handler) GetShifts(w http.ResponseWriter, r *http.Request) {
	businessID, week, ok := h.rangeQuery(w, r, "from", "to")
	if !ok {
		return
	}

	shifts, err := h.repository.GetScheduledShiftsByBusinessAndRange(r.Context(), businessID, week)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次成功", shifts)
}

func (h *Handler) FindConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employeeID, err := strconv.ParseInt(q.Get("employeeID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "员工ID无效")
		return
	}
	branchID, err := strconv.ParseInt(q.Get("branchID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "门店ID无效")
		return
	}
	date, err := utils.ParseDate(q.Get("date"))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee, err := h.repository.GetEmployeeByID(r.Context(), employeeID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "员工不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if !h.canAccessBusiness(w, r, employee.BusinessID) {
		return
	}

	branch, err := h.repository.GetBranchByID(r.Context(), branchID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.domainError(w, r, domain.ErrBranchNotInBusiness)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if branch.BusinessID != employee.BusinessID {
		h.domainError(w, r, domain.ErrBranchNotInBusiness)
		return
	}

	conflicts, err := h.detector.FindConflicts(r.Context(), employeeID, date, branchID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "检查冲突成功", map[string]any{
		"hasConflict": len(conflicts) > 0,
		"shifts":      conflicts,
	})
}

func (h *Handler) notifyAssigned(r *http.Request, shift *domain.ScheduledShift) {
	if shift.EmployeeID == nil || shift.Status != domain.ShiftStatusApproved {
		return
	}

	employee, err := h.repository.GetEmployeeByID(r.Context(), *shift.EmployeeID)
	if err != nil {
		h.logInternalServerError(r, err)
		return
	}
	branch, err := h.repository.GetBranchByID(r.Context(), shift.BranchID)
	if err != nil {
		h.logInternalServerError(r, err)
		return
	}

	h.notifier.Publish(r.Context(), domain.Notification{
		Type: domain.NotifyShiftAssigned,
		To:   employee.Email,
		Data: domain.ShiftAssignedData{
			FullName:        employee.FullName,
			BranchName:      branch.Name,
			ShiftDate:       shift.ShiftDate.Format(domain.DateLayout),
			StartTime:       shift.StartTime,
			EndTime:         shift.EndTime,
			ManagerOverride: shift.ManagerOverride,
		},
	})
}

// AssignShift 没有冲突时直接写入；有冲突时返回待授权的请求，需要店长输入授权码后才会写入
func (h *Handler) AssignShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID     int64  `json:"businessID" validate:"required"`
		EmployeeID     *int64 `json:"employeeID"`
		BranchID       int64  `json:"branchID" validate:"required"`
		ShiftDate      string `json:"shiftDate" validate:"required"`
		StartTime      string `json:"startTime" validate:"required"`
		EndTime        string `json:"endTime" validate:"required"`
		Status         string `json:"status" validate:"omitempty,oneof=pending approved"`
		RolePreference string `json:"rolePreference" validate:"max=50"`
		Notes          string `json:"notes" validate:"max=255"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !h.canAccessBusiness(w, r, req.BusinessID) {
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

	status := domain.ShiftStatusApproved
	if req.Status != "" {
		status = domain.ShiftStatus(req.Status)
	}

	shift := &domain.ScheduledShift{
		BusinessID:     req.BusinessID,
		EmployeeID:     req.EmployeeID,
		BranchID:       req.BranchID,
		ShiftDate:      date,
		StartTime:      start,
		EndTime:        end,
		Status:         status,
		RolePreference: req.RolePreference,
		Notes:          req.Notes,
	}

	assignment, err := h.overrides.Assign(r.Context(), shift, me(r).ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	if assignment.Conflict {
		h.successResponse(w, r, "该员工当天在该门店已有班次，需要店长授权", assignment)
		return
	}

	h.notifyAssigned(r, assignment.Shift)
	h.successResponse(w, r, "排班成功", assignment)
}

func pendingOverride(r *http.Request) *domain.PendingOverride {
	return r.Context().Value(PendingOverrideCtx).(*domain.PendingOverride)
}

func (h *Handler) GetPendingOverride(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取授权请求成功", pendingOverride(r))
}

func (h *Handler) ConfirmOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManagerCode string `json:"managerCode" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	decision, err := h.overrides.Confirm(r.Context(), pendingOverride(r).ID, req.ManagerCode, me(r).ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if !decision.Accepted {
		h.failResponse(w, r, "授权码错误", decision)
		return
	}

	h.notifyAssigned(r, decision.Shift)
	h.successResponse(w, r, "已授权并完成排班", decision)
}

func (h *Handler) CancelOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.overrides.Cancel(r.Context(), pendingOverride(r).ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "已取消排班", nil)
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status     *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
		IsArchived *bool   `json:"isArchived"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := r.Context().Value(ShiftCtx).(*domain.ScheduledShift)
	approving := false
	if req.Status != nil {
		approving = shift.Status != domain.ShiftStatusApproved && *req.Status == string(domain.ShiftStatusApproved)
		shift.Status = domain.ShiftStatus(*req.Status)
	}
	restoring := false
	if req.IsArchived != nil {
		restoring = shift.IsArchived && !*req.IsArchived
		shift.IsArchived = *req.IsArchived
	}

	// 取消归档或批准申请会让班次重新参与排班，需要和新增班次一样检查冲突。
	// 店长授权写入的班次已经接受过冲突，不再检查。
	if (approving || restoring) && !shift.ManagerOverride {
		conflicts, err := h.detector.ConflictsWith(r.Context(), shift)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if len(conflicts) > 0 {
			h.failResponse(w, r, "该员工当天在该门店已有其他班次", map[string]any{"shifts": conflicts})
			return
		}
	}

	if err := h.repository.UpdateScheduledShift(r.Context(), shift); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.domainError(w, r, domain.ErrVersionConflict)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if approving && !shift.IsArchived {
		h.notifyAssigned(r, shift)
	}
	h.successResponse(w, r, "更新班次成功", shift)
}

// ExportSchedule 导出一周的排班表和排班意向
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	businessID, week, ok := h.rangeQuery(w, r, "weekStart", "weekEnd")
	if !ok {
		return
	}

	shifts, err := h.repository.GetScheduledShiftsByBusinessAndRange(r.Context(), businessID, week)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	submissions, err := h.repository.GetShiftSubmissionsByBusinessAndWeek(r.Context(), businessID, week)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	employees, err := h.repository.GetEmployeesByBusinessID(r.Context(), businessID, false)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	branches, err := h.repository.GetBranchesByBusinessID(r.Context(), businessID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	schedule := &export.WeeklySchedule{
		Week:        week,
		Shifts:      shifts,
		Submissions: submissions,
		Employees:   make(map[int64]*domain.Employee, len(employees)),
		Branches:    make(map[int64]*domain.Branch, len(branches)),
	}
	for _, e := range employees {
		schedule.Employees[e.ID] = e
	}
	for _, b := range branches {
		schedule.Branches[b.ID] = b
	}

	// 先写入内存，生成失败时还能返回 JSON 错误
	buf := bytes.Buffer{}
	if err := schedule.Write(&buf); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	filename := fmt.Sprintf("schedule-%s.xlsx", week.Start.Format(domain.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}
