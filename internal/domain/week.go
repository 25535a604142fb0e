package domain

import (
	"errors"
	"time"
)

const DateLayout = "2006-01-02"

// Week 是一个闭区间 [Start, End]，两端都只保留日期部分
type Week struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewWeek(start, end time.Time) (Week, error) {
	w := Week{Start: TruncateDate(start), End: TruncateDate(end)}
	if w.End.Before(w.Start) {
		return Week{}, errors.New("结束日期不能早于开始日期")
	}
	return w, nil
}

func ParseWeek(start, end string) (Week, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Week{}, errors.New("开始日期格式错误")
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Week{}, errors.New("结束日期格式错误")
	}
	return NewWeek(s, e)
}

// WeekOf 返回 date 所在的周，周日为第一天
func WeekOf(date time.Time) Week {
	d := TruncateDate(date)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

func (w Week) Contains(date time.Time) bool {
	d := TruncateDate(date)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Week) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
