package shifttoken

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

type memoryStore struct {
	mu        sync.Mutex
	employees map[int64]*domain.Employee
	tokens    map[string]*domain.ShiftToken
	nextID    int64
	inserts   int
}

func newMemoryStore(employees ...*domain.Employee) *memoryStore {
	s := &memoryStore{
		employees: make(map[int64]*domain.Employee),
		tokens:    make(map[string]*domain.ShiftToken),
	}
	for _, e := range employees {
		s.employees[e.ID] = e
	}
	return s
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

func sameWeek(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *memoryStore) GetActiveShiftToken(_ context.Context, employeeID int64, purpose domain.TokenPurpose, week *domain.Week, now time.Time) (*domain.ShiftToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var start, end *time.Time
	if week != nil {
		start, end = &week.Start, &week.End
	}
	for _, t := range s.tokens {
		if t.EmployeeID == employeeID && t.Purpose == purpose && sameWeek(t.WeekStart, start) && sameWeek(t.WeekEnd, end) && t.UsableAt(now) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryStore) InsertShiftToken(_ context.Context, token *domain.ShiftToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts++
	if _, ok := s.tokens[token.Value]; ok {
		return domain.ErrDuplicateTokenValue
	}
	s.nextID++
	token.ID = s.nextID
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

func (s *memoryStore) put(token *domain.ShiftToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[token.Value] = &copied
}
