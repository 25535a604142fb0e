package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectedRoutesRequireLogin(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/my-info", nil, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)
}

func TestManagerCannotAccessOtherBusiness(t *testing.T) {
	s := newTestServer(t)
	s.expectManager(100, 1)

	resp := s.do(t, http.MethodGet, "/shifts?businessID=2&from=2024-03-03&to=2024-03-09", nil, sessionCookie(t, 100, domain.RoleBusinessManager))
	assert.False(t, resp.Success)
	assert.Equal(t, "权限不足", resp.Message)
}

var shiftColumns = []string{
	"id", "business_id", "employee_id", "branch_id", "shift_date", "start_time", "end_time", "status",
	"is_archived", "role_preference", "notes", "manager_override", "overridden_by", "created_at", "version",
}

func TestAssignShiftConflictAndOverride(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, 100, domain.RoleBusinessManager)
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	columns := shiftColumns

	// 第一次分配发现冲突
	s.expectManager(100, 1)
	s.expectBranch(3, 1)
	s.expectEmployee(7, 1)
	s.mock.ExpectQuery("is_archived = FALSE").
		WithArgs(int64(7), date, int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "approved", false, "", "", false, nil, time.Now(), 1))

	resp := s.do(t, http.MethodPost, "/shifts", map[string]any{
		"businessID": 1,
		"employeeID": 7,
		"branchID":   3,
		"shiftDate":  "2024-03-05",
		"startTime":  "14:00",
		"endTime":    "18:00",
	}, cookie)
	require.True(t, resp.Success, resp.Message)
	data := dataMap(t, resp)
	require.Equal(t, true, data["conflict"])
	override := data["override"].(map[string]any)
	id := override["id"].(string)
	overrideCtx := override["context"].(map[string]any)
	assert.Equal(t, "李四", overrideCtx["employeeName"])
	assert.Len(t, overrideCtx["competingShifts"], 1)
	assert.True(t, s.redis.Exists("override:pending:"+id))

	// 授权码错误，不写入任何班次
	s.expectManager(100, 1)
	resp = s.do(t, http.MethodPost, "/shifts/overrides/"+id+"/confirm", map[string]string{"managerCode": "0000"}, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, "授权码错误", resp.Message)
	assert.Equal(t, false, dataMap(t, resp)["accepted"])
	assert.True(t, s.redis.Exists("override:pending:"+id))

	// 授权码正确，写入班次并通知员工
	s.expectManager(100, 1)
	s.mock.ExpectQuery("INSERT INTO scheduled_shifts").
		WithArgs(int64(1), int64(7), int64(3), date, "14:00:00", "18:00:00", sqlmock.AnyArg(), "", "", true, int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_archived", "created_at", "version"}).AddRow(12, false, time.Now(), 1))
	s.expectEmployee(7, 1)
	s.expectBranch(3, 1)

	resp = s.do(t, http.MethodPost, "/shifts/overrides/"+id+"/confirm", map[string]string{"managerCode": "8848"}, cookie)
	require.True(t, resp.Success, resp.Message)
	decision := dataMap(t, resp)
	assert.Equal(t, true, decision["accepted"])
	assert.Equal(t, true, decision["shift"].(map[string]any)["managerOverride"])
	assert.False(t, s.redis.Exists("override:pending:"+id))

	require.Len(t, s.notifier.sent, 1)
	assert.Equal(t, domain.NotifyShiftAssigned, s.notifier.sent[0].Type)
	assert.True(t, s.notifier.sent[0].Data.(domain.ShiftAssignedData).ManagerOverride)

	// 同一个授权不能再次使用
	s.expectManager(100, 1)
	resp = s.do(t, http.MethodPost, "/shifts/overrides/"+id+"/confirm", map[string]string{"managerCode": "8848"}, cookie)
	assert.False(t, resp.Success)
	assert.Equal(t, "授权请求不存在或已过期", resp.Message)
}

func TestFindConflictsRejectsForeignBranch(t *testing.T) {
	s := newTestServer(t)
	s.expectManager(100, 1)
	s.expectEmployee(7, 1)
	s.expectBranch(4, 2)

	resp := s.do(t, http.MethodGet, "/shifts/conflicts?employeeID=7&branchID=4&date=2024-03-05", nil, sessionCookie(t, 100, domain.RoleBusinessManager))
	assert.False(t, resp.Success)
	assert.Equal(t, "门店不存在", resp.Message)
}

func TestUpdateShiftRechecksConflicts(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	cookie := sessionCookie(t, 100, domain.RoleBusinessManager)

	t.Run("restore archived shift into a conflict", func(t *testing.T) {
		s := newTestServer(t)
		s.expectManager(100, 1)
		s.mock.ExpectQuery("FROM scheduled_shifts WHERE id").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "approved", true, "", "", false, nil, time.Now(), 1))
		s.mock.ExpectQuery("is_archived = FALSE").
			WithArgs(int64(7), date, int64(3)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(12, 1, 7, 3, date, "14:00:00", "18:00:00", "approved", false, "", "", false, nil, time.Now(), 1))

		resp := s.do(t, http.MethodPatch, "/shifts/11", map[string]any{"isArchived": false}, cookie)
		assert.False(t, resp.Success)
		assert.Equal(t, "该员工当天在该门店已有其他班次", resp.Message)
		assert.Len(t, dataMap(t, resp)["shifts"], 1)
	})

	t.Run("approve pending shift into a conflict", func(t *testing.T) {
		s := newTestServer(t)
		s.expectManager(100, 1)
		s.mock.ExpectQuery("FROM scheduled_shifts WHERE id").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "pending", false, "", "", false, nil, time.Now(), 1))
		s.mock.ExpectQuery("is_archived = FALSE").
			WithArgs(int64(7), date, int64(3)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "pending", false, "", "", false, nil, time.Now(), 1).
				AddRow(12, 1, 7, 3, date, "14:00:00", "18:00:00", "approved", false, "", "", false, nil, time.Now(), 1))

		resp := s.do(t, http.MethodPatch, "/shifts/11", map[string]any{"status": "approved"}, cookie)
		assert.False(t, resp.Success)
		assert.Equal(t, "该员工当天在该门店已有其他班次", resp.Message)
		assert.Empty(t, s.notifier.sent)
	})

	t.Run("approve shift without other shifts", func(t *testing.T) {
		s := newTestServer(t)
		s.expectManager(100, 1)
		s.mock.ExpectQuery("FROM scheduled_shifts WHERE id").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "pending", false, "", "", false, nil, time.Now(), 1))
		s.mock.ExpectQuery("is_archived = FALSE").
			WithArgs(int64(7), date, int64(3)).
			WillReturnRows(sqlmock.NewRows(shiftColumns).
				AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "pending", false, "", "", false, nil, time.Now(), 1))
		s.mock.ExpectQuery("UPDATE scheduled_shifts").
			WithArgs(sqlmock.AnyArg(), false, int64(11), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		s.expectEmployee(7, 1)
		s.expectBranch(3, 1)

		resp := s.do(t, http.MethodPatch, "/shifts/11", map[string]any{"status": "approved"}, cookie)
		require.True(t, resp.Success, resp.Message)
		require.Len(t, s.notifier.sent, 1)
		assert.Equal(t, domain.NotifyShiftAssigned, s.notifier.sent[0].Type)
	})
}
