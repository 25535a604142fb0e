package shifttoken

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTTLs = TTLs{Weekly: 7 * 24 * time.Hour, Permanent: 365 * 24 * time.Hour, Registration: 72 * time.Hour}

func activeEmployee(id, businessID int64) *domain.Employee {
	return &domain.Employee{ID: id, BusinessID: businessID, FullName: "张三", IsActive: true}
}

func testWeek(t *testing.T) *domain.Week {
	t.Helper()
	w, err := domain.ParseWeek("2024-03-03", "2024-03-09")
	require.NoError(t, err)
	return &w
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func sequence(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestIssueThenValidateReturnsSameEmployee(t *testing.T) {
	store := newMemoryStore(activeEmployee(7, 1))
	issuer := NewIssuer(store, testTTLs, 3)

	token, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeShiftSubmission, testWeek(t))
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.False(t, token.IsUsed)
	assert.WithinDuration(t, time.Now().Add(testTTLs.Weekly), token.ExpiresAt, time.Minute)

	binding, err := NewValidator(store).Validate(context.Background(), token.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), binding.EmployeeID)
	assert.Equal(t, int64(1), binding.BusinessID)
}

func TestIssueReusesActiveToken(t *testing.T) {
	store := newMemoryStore(activeEmployee(7, 1))
	issuer := NewIssuer(store, testTTLs, 3)
	week := testWeek(t)

	first, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeShiftSubmission, week)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeShiftSubmission, week)
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 1, store.inserts)

	next := domain.WeekOf(week.End.AddDate(0, 0, 1))
	other, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeShiftSubmission, &next)
	require.NoError(t, err)
	assert.NotEqual(t, first.Value, other.Value)

	permanent, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeShiftSubmission, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Value, permanent.Value)
	assert.Nil(t, permanent.WeekStart)
}

func TestIssueDoesNotReuseUsedOrExpiredToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore(activeEmployee(7, 1))
	store.put(&domain.ShiftToken{EmployeeID: 7, Value: "used", Purpose: domain.TokenPurposeRegistration, ExpiresAt: now.Add(time.Hour), IsUsed: true})
	store.put(&domain.ShiftToken{EmployeeID: 7, Value: "expired", Purpose: domain.TokenPurposeRegistration, ExpiresAt: now})

	issuer := NewIssuer(store, testTTLs, 3)
	issuer.now = fixedClock(now)
	issuer.newValue = sequence("fresh")

	token, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeRegistration, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.Value)
	assert.Equal(t, now.Add(testTTLs.Registration), token.ExpiresAt)
}

func TestIssueRetriesOnDuplicateValue(t *testing.T) {
	store := newMemoryStore(activeEmployee(7, 1))
	store.put(&domain.ShiftToken{EmployeeID: 99, Value: "taken", Purpose: domain.TokenPurposeRegistration, ExpiresAt: time.Now().Add(time.Hour)})

	issuer := NewIssuer(store, testTTLs, 3)
	issuer.newValue = sequence("taken", "taken", "fresh")

	token, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeRegistration, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.Value)
	assert.Equal(t, 3, store.inserts)
}

func TestIssueGivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemoryStore(activeEmployee(7, 1))
	store.put(&domain.ShiftToken{EmployeeID: 99, Value: "taken", Purpose: domain.TokenPurposeRegistration, ExpiresAt: time.Now().Add(time.Hour)})

	issuer := NewIssuer(store, testTTLs, 2)
	issuer.newValue = sequence("taken")

	_, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeRegistration, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIssuance))
	assert.True(t, errors.Is(err, domain.ErrDuplicateTokenValue))
	assert.Equal(t, 2, store.inserts)
}

func TestIssueRejectsInvalidEmployee(t *testing.T) {
	inactive := activeEmployee(8, 1)
	inactive.IsActive = false
	store := newMemoryStore(activeEmployee(7, 1), inactive)
	issuer := NewIssuer(store, testTTLs, 3)

	tests := []struct {
		name       string
		employeeID int64
		purpose    domain.TokenPurpose
		cause      error
	}{
		{name: "missing employee", employeeID: 42, purpose: domain.TokenPurposeRegistration},
		{name: "inactive employee", employeeID: 8, purpose: domain.TokenPurposeRegistration, cause: domain.ErrEmployeeInactive},
		{name: "unknown purpose", employeeID: 7, purpose: "vacation", cause: domain.ErrInvalidPurpose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Issue(context.Background(), tt.employeeID, tt.purpose, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIssuance)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
	assert.Zero(t, store.inserts)
}

func TestIssueRegistrationIgnoresWeek(t *testing.T) {
	store := newMemoryStore(activeEmployee(7, 1))
	issuer := NewIssuer(store, testTTLs, 3)

	token, err := issuer.Issue(context.Background(), 7, domain.TokenPurposeRegistration, testWeek(t))
	require.NoError(t, err)
	assert.Nil(t, token.Week())
}

func TestTTLsFor(t *testing.T) {
	week := testWeek(t)
	assert.Equal(t, testTTLs.Registration, testTTLs.For(domain.TokenPurposeRegistration, week))
	assert.Equal(t, testTTLs.Weekly, testTTLs.For(domain.TokenPurposeShiftSubmission, week))
	assert.Equal(t, testTTLs.Permanent, testTTLs.For(domain.TokenPurposeShiftSubmission, nil))
}
