package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

const clockLayout = "15:04:05"

// NormalizeClock 接受 15:04 或 15:04:05，统一返回 15:04:05
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{clockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", fmt.Errorf("时间 %q 格式错误", s)
}

// ValidateShiftTime 规范化开始和结束时间，并检查结束时间晚于开始时间
func ValidateShiftTime(start, end string) (string, string, error) {
	s, err := NormalizeClock(start)
	if err != nil {
		return "", "", errors.New("开始时间格式错误")
	}
	e, err := NormalizeClock(end)
	if err != nil {
		return "", "", errors.New("结束时间格式错误")
	}
	// 同一格式下字符串比较与时间比较一致
	if e <= s {
		return "", "", errors.New("结束时间必须晚于开始时间")
	}
	return s, e, nil
}

// ValidateRequestedShifts 检查一周的排班意向：每个班次都在周内，时间合法，同一天同一门店内不重叠。
// 返回规范化后的副本，不修改传入的 shifts。
func ValidateRequestedShifts(week domain.Week, requested []domain.RequestedShift) ([]domain.RequestedShift, error) {
	if len(requested) == 0 {
		return nil, errors.New("至少需要提交一个班次")
	}

	shifts := make([]domain.RequestedShift, len(requested))
	copy(shifts, requested)
	for i := range shifts {
		if !week.Contains(shifts[i].ShiftDate) {
			return nil, fmt.Errorf("第 %d 个班次不在 %s 内", i+1, week)
		}
		start, end, err := ValidateShiftTime(shifts[i].StartTime, shifts[i].EndTime)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个班次：%w", i+1, err)
		}
		shifts[i].ShiftDate = domain.TruncateDate(shifts[i].ShiftDate)
		shifts[i].StartTime, shifts[i].EndTime = start, end
	}

	for i := 0; i < len(shifts); i++ {
		for j := i + 1; j < len(shifts); j++ {
			if !shifts[i].ShiftDate.Equal(shifts[j].ShiftDate) || !sameBranch(shifts[i].BranchID, shifts[j].BranchID) {
				continue
			}
			if shifts[i].StartTime < shifts[j].EndTime && shifts[j].StartTime < shifts[i].EndTime {
				return nil, fmt.Errorf("第 %d 个班次和第 %d 个班次时间冲突", i+1, j+1)
			}
		}
	}

	return shifts, nil
}

func sameBranch(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParseDate 解析 2006-01-02 格式的日期
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期 %q 格式错误", s)
	}
	return d, nil
}
