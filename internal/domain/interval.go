package domain

import (
	"fmt"
	"strings"
	"time"
)

type Interval string

const (
	IntervalHour Interval = "hour"
	IntervalDay  Interval = "day"
	IntervalWeek Interval = "week"
)

// ParseInterval never fails: anything that is not day or week is hour.
func ParseInterval(s string) Interval {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case IntervalDay:
		return IntervalDay
	case IntervalWeek:
		return IntervalWeek
	default:
		return IntervalHour
	}
}

// BucketKey truncates t to the interval's granularity.
//
// Week buckets are the ISO (year, week) pair, "2024-W07". Every day of that
// week lands in the same bucket; the day of week is not kept.
func (i Interval) BucketKey(t time.Time) string {
	t = t.UTC()
	switch i {
	case IntervalDay:
		return t.Format("2006-01-02") + " 00:00:00"
	case IntervalWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01-02 15") + ":00:00"
	}
}
