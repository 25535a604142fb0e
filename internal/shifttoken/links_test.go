package shifttoken

import (
	"testing"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLinks(t *testing.T) {
	links := NewLinks("https://shift.example.com/")
	week := testWeek(t)

	assert.Equal(t, "https://shift.example.com/register-employee?token=abc", links.Registration("abc"))
	assert.Equal(t,
		"https://shift.example.com/shift-submission?token=abc&week_end=2024-03-09&week_start=2024-03-03",
		links.ShiftSubmission("abc", week),
	)
	assert.Equal(t, "https://shift.example.com/shift-submission?token=abc", links.ShiftSubmission("abc", nil))

	start, end := week.Start, week.End
	token := &domain.ShiftToken{Value: "xyz", Purpose: domain.TokenPurposeShiftSubmission, WeekStart: &start, WeekEnd: &end}
	assert.Contains(t, links.For(token), "/shift-submission?token=xyz")
	token.Purpose = domain.TokenPurposeRegistration
	assert.Equal(t, "https://shift.example.com/register-employee?token=xyz", links.For(token))
}
