package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

var rejectionMessages = map[domain.RejectionReason]string{
	domain.RejectNotFound: "链接无效",
	domain.RejectUsed:     "链接已被使用",
	domain.RejectExpired:  "链接已过期",
}

var blockMessages = map[domain.BlockReason]string{
	domain.BlockAlreadySubmitted:  "本周已提交过排班意向",
	domain.BlockSchedulePublished: "本周排班已发布，无法再提交",
}

var errorMessages = []struct {
	err error
	msg string
}{
	{domain.ErrIssuance, "链接生成失败"},
	{domain.ErrOverrideNotFound, "授权请求不存在或已过期"},
	{domain.ErrOverrideRejected, "授权码错误"},
	{domain.ErrWeekMismatch, "提交的周与链接不一致"},
	{domain.ErrShiftOutsideWeek, "班次日期不在所选周内"},
	{domain.ErrBranchNotInBusiness, "门店不存在"},
	{domain.ErrEmployeeNotInBusiness, "员工不存在"},
	{domain.ErrEmployeeInactive, "员工已停用"},
	{domain.ErrEmployeeExists, "该手机号已被登记"},
	{domain.ErrVersionConflict, "数据已被修改，请刷新后重试"},
	{domain.ErrShiftConflict, "该员工当天在该门店已有其他班次"},
	{sql.ErrNoRows, "记录不存在"},
}

// domainError 把业务错误转换为 success=false 的响应，其余错误按服务器内部错误处理
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var rejection *domain.TokenRejection
	if errors.As(err, &rejection) {
		h.failResponse(w, r, rejectionMessages[rejection.Reason], map[string]any{"reason": rejection.Reason})
		return
	}

	var blocked *domain.SubmissionBlocked
	if errors.As(err, &blocked) {
		h.failResponse(w, r, blockMessages[blocked.Reason], map[string]any{"reason": blocked.Reason})
		return
	}

	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			if errors.Is(err, domain.ErrIssuance) {
				slog.Warn("链接生成失败", "path", r.URL.Path, "error", err)
			}
			h.errorResponse(w, r, m.msg)
			return
		}
	}

	h.internalServerError(w, r, err)
}
