package handler

import (
	"net/http"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

func business(r *http.Request) *domain.Business {
	return r.Context().Value(BusinessCtx).(*domain.Business)
}

func (h *Handler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	b := &domain.Business{Name: req.Name}
	if err := h.repository.CreateBusiness(r.Context(), b); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建商户成功", b)
}

func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取商户信息成功", business(r))
}

func (h *Handler) GetBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.repository.GetBranchesByBusinessID(r.Context(), business(r).ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取门店列表成功", branches)
}

func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name" validate:"required,max=100"`
		Address string `json:"address" validate:"max=255"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	branch := &domain.Branch{BusinessID: business(r).ID, Name: req.Name, Address: req.Address}
	if err := h.repository.CreateBranch(r.Context(), branch); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建门店成功", branch)
}

func (h *Handler) GetEmployees(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	employees, err := h.repository.GetEmployeesByBusinessID(r.Context(), business(r).ID, activeOnly)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", employees)
}

// CreateEmployee 登记员工，同时签发注册链接并通过邮件发送给员工
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName" validate:"required,max=50"`
		Phone    string `json:"phone" validate:"required,e164|numeric"`
		Email    string `json:"email" validate:"omitempty,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	b := business(r)
	employee := &domain.Employee{BusinessID: b.ID, FullName: req.FullName, Phone: req.Phone, Email: req.Email}
	if err := h.repository.CreateEmployee(r.Context(), employee); err != nil {
		h.domainError(w, r, err)
		return
	}

	token, err := h.issuer.Issue(r.Context(), employee.ID, domain.TokenPurposeRegistration, nil)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	url := h.links.Registration(token.Value)

	h.notifier.Publish(r.Context(), domain.Notification{
		Type: domain.NotifyRegistrationLink,
		To:   employee.Email,
		Data: domain.RegistrationLinkData{
			FullName:     employee.FullName,
			BusinessName: b.Name,
			URL:          url,
			ExpiresAt:    token.ExpiresAt.Format(time.DateTime),
		},
	})

	h.successResponse(w, r, "登记员工成功", map[string]any{
		"employee":        employee,
		"registrationURL": url,
		"expiresAt":       token.ExpiresAt,
	})
}
