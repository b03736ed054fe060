package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the only representation written to the store. It is
// fixed width and zero padded, so string order equals time order; range
// predicates and bucketing rely on that.
const TimestampLayout = "2006-01-02 15:04:05"

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Layouts accepted from callers. Values without a zone are taken as UTC.
var inputLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// NormalizeTimestamp rewrites any accepted input into TimestampLayout.
func NormalizeTimestamp(s string) (string, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}
