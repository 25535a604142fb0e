package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

func (h *Handler) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	businessID, week, ok := h.rangeQuery(w, r, "weekStart", "weekEnd")
	if !ok {
		return
	}

	submissions, err := h.repository.GetShiftSubmissionsByBusinessAndWeek(r.Context(), businessID, week)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班意向成功", submissions)
}

func (h *Handler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "提交ID无效")
		return
	}

	submission, err := h.repository.GetShiftSubmissionByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "提交记录不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	employee, err := h.repository.GetEmployeeByID(r.Context(), submission.EmployeeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !h.canAccessBusiness(w, r, employee.BusinessID) {
		return
	}

	if submission.Status == domain.SubmissionStatusReviewed {
		h.errorResponse(w, r, "该提交已审核")
		return
	}

	version, err := h.repository.MarkShiftSubmissionReviewed(r.Context(), submission.ID, submission.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.domainError(w, r, domain.ErrVersionConflict)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	submission.Status = domain.SubmissionStatusReviewed
	submission.Version = version

	h.successResponse(w, r, "审核成功", submission)
}
