package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shiftColumns = []string{
	"id", "business_id", "employee_id", "branch_id", "shift_date", "start_time", "end_time", "status",
	"is_archived", "role_preference", "notes", "manager_override", "overridden_by", "created_at", "version",
}

func TestExistsApprovedShiftInRange(t *testing.T) {
	repo, mock := newTestRepository(t)
	week, err := domain.ParseWeek("2024-03-03", "2024-03-09")
	require.NoError(t, err)

	mock.ExpectQuery("FROM scheduled_shifts").
		WithArgs(int64(1), week.Start, week.End, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	published, err := repo.ExistsApprovedShiftInRange(context.Background(), 1, week)
	require.NoError(t, err)
	assert.True(t, published)
}

func TestGetShiftsByEmployeeDateBranch(t *testing.T) {
	repo, mock := newTestRepository(t)
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("is_archived = FALSE").
		WithArgs(int64(7), date, int64(3)).
		WillReturnRows(sqlmock.NewRows(shiftColumns).
			AddRow(11, 1, 7, 3, date, "09:00:00", "13:00:00", "approved", false, "", "", false, nil, time.Now(), 1).
			AddRow(12, 1, 7, 3, date, "18:00:00", "22:00:00", "pending", false, "收银", "", true, 100, time.Now(), 2))

	shifts, err := repo.GetShiftsByEmployeeDateBranch(context.Background(), 7, date.Add(9*time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, int64(7), *shifts[0].EmployeeID)
	assert.Nil(t, shifts[0].OverriddenBy)
	assert.True(t, shifts[1].ManagerOverride)
	assert.Equal(t, int64(100), *shifts[1].OverriddenBy)
}

func TestCreateShiftRequestWithToken(t *testing.T) {
	repo, mock := newTestRepository(t)
	employeeID := int64(7)
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO scheduled_shifts").
		WithArgs(int64(1), &employeeID, int64(3), date, "10:00:00", "18:00:00", sqlmock.AnyArg(), "收银", "", false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_archived", "created_at", "version"}).AddRow(21, false, time.Now(), 1))
	mock.ExpectExec("UPDATE shift_tokens").
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	shift := &domain.ScheduledShift{
		BusinessID:     1,
		EmployeeID:     &employeeID,
		BranchID:       3,
		ShiftDate:      date,
		StartTime:      "10:00:00",
		EndTime:        "18:00:00",
		Status:         domain.ShiftStatusPending,
		RolePreference: "收银",
	}
	data := domain.NewShiftRequestData(domain.ShiftRequestPayload{ShiftDate: date, StartTime: "10:00:00", EndTime: "18:00:00", BranchPreference: 3})
	require.NoError(t, repo.CreateShiftRequestWithToken(context.Background(), shift, "tok", data))
	assert.Equal(t, int64(21), shift.ID)
}

func TestUpdateScheduledShiftVersion(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("UPDATE scheduled_shifts").
		WithArgs(sqlmock.AnyArg(), true, int64(21), int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))

	shift := &domain.ScheduledShift{ID: 21, Status: domain.ShiftStatusApproved, IsArchived: true, Version: 1}
	require.NoError(t, repo.UpdateScheduledShift(context.Background(), shift))
	assert.Equal(t, int32(2), shift.Version)
}
