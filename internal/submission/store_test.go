package submission

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// memoryStore 用一把锁模拟事务：数据写入与令牌消费要么都成功，要么都不生效
type memoryStore struct {
	mu          sync.Mutex
	employees   map[int64]*domain.Employee
	branches    map[int64]*domain.Branch
	tokens      map[string]*domain.ShiftToken
	submissions []*domain.ShiftSubmission
	shifts      []*domain.ScheduledShift
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		employees: make(map[int64]*domain.Employee),
		branches:  make(map[int64]*domain.Branch),
		tokens:    make(map[string]*domain.ShiftToken),
	}
}

func (s *memoryStore) GetEmployeeByID(_ context.Context, id int64) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (s *memoryStore) GetActiveShiftToken(context.Context, int64, domain.TokenPurpose, *domain.Week, time.Time) (*domain.ShiftToken, error) {
	return nil, sql.ErrNoRows
}

func (s *memoryStore) InsertShiftToken(_ context.Context, token *domain.ShiftToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[token.Value] = &copied
	return nil
}

func (s *memoryStore) GetShiftTokenByValue(_ context.Context, value string) (*domain.ShiftToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *memoryStore) GetBranchByID(_ context.Context, id int64) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (s *memoryStore) ExistsShiftSubmission(_ context.Context, employeeID int64, week domain.Week) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.submissions {
		if sub.EmployeeID == employeeID && sub.WeekStart.Equal(week.Start) && sub.WeekEnd.Equal(week.End) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ExistsApprovedShiftInRange(_ context.Context, businessID int64, week domain.Week) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shift := range s.shifts {
		if shift.BusinessID == businessID && shift.Status == domain.ShiftStatusApproved && !shift.IsArchived && week.Contains(shift.ShiftDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) consume(tokenValue string, data domain.SubmittedData) error {
	t, ok := s.tokens[tokenValue]
	if !ok || t.IsUsed {
		return domain.ErrTokenConsumed
	}
	now := time.Now()
	t.IsUsed, t.UsedAt, t.SubmittedData = true, &now, &data
	return nil
}

func (s *memoryStore) CreateShiftSubmissionWithToken(_ context.Context, submission *domain.ShiftSubmission, tokenValue string, data domain.SubmittedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consume(tokenValue, data); err != nil {
		return err
	}
	submission.ID = int64(len(s.submissions) + 1)
	submission.Status = domain.SubmissionStatusSubmitted
	s.submissions = append(s.submissions, submission)
	return nil
}

func (s *memoryStore) CreateShiftRequestWithToken(_ context.Context, shift *domain.ScheduledShift, tokenValue string, data domain.SubmittedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consume(tokenValue, data); err != nil {
		return err
	}
	shift.ID = int64(len(s.shifts) + 1)
	s.shifts = append(s.shifts, shift)
	return nil
}

func (s *memoryStore) RegisterEmployeeWithToken(_ context.Context, employee *domain.Employee, tokenValue string, data domain.SubmittedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consume(tokenValue, data); err != nil {
		return err
	}
	employee.Registered = true
	copied := *employee
	s.employees[employee.ID] = &copied
	return nil
}

func (s *memoryStore) token(value string) *domain.ShiftToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.tokens[value]
	return &copied
}
