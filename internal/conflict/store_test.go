package conflict

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	mu        sync.Mutex
	employees map[int64]*domain.Employee
	branches  map[int64]*domain.Branch
	shifts    []*domain.ScheduledShift
	// insertErr 不为空时下一次写入失败
	insertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		employees: map[int64]*domain.Employee{
			7: {ID: 7, BusinessID: 1, FullName: "王五", IsActive: true},
			8: {ID: 8, BusinessID: 2, FullName: "赵六", IsActive: true},
		},
		branches: map[int64]*domain.Branch{
			3: {ID: 3, BusinessID: 1, Name: "一号店"},
			4: {ID: 4, BusinessID: 1, Name: "二号店"},
		},
	}
}

func (s *memoryStore) GetShiftsByEmployeeDateBranch(_ context.Context, employeeID int64, shiftDate time.Time, branchID int64) ([]*domain.ScheduledShift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make([]*domain.ScheduledShift, 0)
	for _, shift := range s.shifts {
		if shift.EmployeeID != nil && *shift.EmployeeID == employeeID && shift.ShiftDate.Equal(shiftDate) && shift.BranchID == branchID {
			found = append(found, shift)
		}
	}
	return found, nil
}

func (s *memoryStore) GetEmployeeByID(_ context.Context, id int64) (*domain.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (s *memoryStore) GetBranchByID(_ context.Context, id int64) (*domain.Branch, error) {
	b, ok := s.branches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (s *memoryStore) InsertScheduledShift(_ context.Context, shift *domain.ScheduledShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertErr; err != nil {
		s.insertErr = nil
		return err
	}
	shift.ID = int64(len(s.shifts) + 1)
	copied := *shift
	s.shifts = append(s.shifts, &copied)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shifts)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisStore(rdb, time.Second)
}

func employeeRef(id int64) *int64 {
	return &id
}

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
