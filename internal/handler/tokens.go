package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

type issuedToken struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Purpose   string    `json:"purpose"`
	Week      *string   `json:"week"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) notifyToken(r *http.Request, employee *domain.Employee, token *domain.ShiftToken, url string) {
	n := domain.Notification{To: employee.Email}
	switch token.Purpose {
	case domain.TokenPurposeRegistration:
		b, err := h.repository.GetBusinessByID(r.Context(), employee.BusinessID)
		if err != nil {
			h.logInternalServerError(r, err)
			return
		}
		n.Type = domain.NotifyRegistrationLink
		n.Data = domain.RegistrationLinkData{
			FullName:     employee.FullName,
			BusinessName: b.Name,
			URL:          url,
			ExpiresAt:    token.ExpiresAt.Format(time.DateTime),
		}
	default:
		data := domain.ShiftLinkData{FullName: employee.FullName, URL: url, ExpiresAt: token.ExpiresAt.Format(time.DateTime)}
		if week := token.Week(); week != nil {
			data.WeekStart = week.Start.Format(domain.DateLayout)
			data.WeekEnd = week.End.Format(domain.DateLayout)
		}
		n.Type = domain.NotifyShiftLink
		n.Data = data
	}

	h.notifier.Publish(r.Context(), n)
}

func (h *Handler) toIssuedToken(token *domain.ShiftToken) issuedToken {
	out := issuedToken{
		Token:     token.Value,
		URL:       h.links.For(token),
		Purpose:   string(token.Purpose),
		ExpiresAt: token.ExpiresAt,
	}
	if week := token.Week(); week != nil {
		s := week.String()
		out.Week = &s
	}
	return out
}

func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID int64  `json:"employeeID" validate:"required"`
		Purpose    string `json:"purpose" validate:"required,oneof=registration shift_submission"`
		WeekStart  string `json:"weekStart" validate:"required_with=WeekEnd"`
		WeekEnd    string `json:"weekEnd" validate:"required_with=WeekStart"`
		Notify     bool   `json:"notify"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var week *domain.Week
	if req.WeekStart != "" {
		wk, err := domain.ParseWeek(req.WeekStart, req.WeekEnd)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		week = &wk
	}

	employee, err := h.repository.GetEmployeeByID(r.Context(), req.EmployeeID)
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

	token, err := h.issuer.Issue(r.Context(), employee.ID, domain.TokenPurpose(req.Purpose), week)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	out := h.toIssuedToken(token)
	if req.Notify {
		h.notifyToken(r, employee, token, out.URL)
	}

	h.successResponse(w, r, "生成链接成功", out)
}

type bulkResult struct {
	EmployeeID   int64        `json:"employeeID"`
	EmployeeName string       `json:"employeeName,omitempty"`
	Success      bool         `json:"success"`
	Token        *issuedToken `json:"token,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// BulkIssueTokens 为商户的在职员工逐个签发本周的排班链接，单个员工失败不影响其他员工
func (h *Handler) BulkIssueTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID    int64   `json:"business_id" validate:"required"`
		WeekStartDate string  `json:"week_start_date" validate:"required"`
		WeekEndDate   string  `json:"week_end_date" validate:"required"`
		EmployeeIDs   []int64 `json:"employee_ids"`
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

	week, err := domain.ParseWeek(req.WeekStartDate, req.WeekEndDate)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	employees, err := h.repository.GetEmployeesByBusinessID(r.Context(), req.BusinessID, true)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	active := make(map[int64]*domain.Employee, len(employees))
	for _, e := range employees {
		active[e.ID] = e
	}

	targets := req.EmployeeIDs
	if len(targets) == 0 {
		for _, e := range employees {
			targets = append(targets, e.ID)
		}
	}

	results := make([]bulkResult, 0, len(targets))
	succeeded := 0
	for _, id := range targets {
		employee, ok := active[id]
		if !ok {
			results = append(results, bulkResult{EmployeeID: id, Error: "员工不存在或已停用"})
			continue
		}

		token, err := h.issuer.Issue(r.Context(), employee.ID, domain.TokenPurposeShiftSubmission, &week)
		if err != nil {
			if !errors.Is(err, domain.ErrIssuance) {
				h.logInternalServerError(r, err)
			}
			results = append(results, bulkResult{EmployeeID: id, EmployeeName: employee.FullName, Error: "链接生成失败"})
			continue
		}

		out := h.toIssuedToken(token)
		h.notifyToken(r, employee, token, out.URL)
		results = append(results, bulkResult{EmployeeID: id, EmployeeName: employee.FullName, Success: true, Token: &out})
		succeeded++
	}

	h.successResponse(w, r, "批量生成链接完成", map[string]any{
		"week":      week.String(),
		"total":     len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}
