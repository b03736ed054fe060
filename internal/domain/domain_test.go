package domain

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 4, 10, 15, 30, 0, time.UTC)

	cases := []string{
		"2024-03-04 10:15:30",
		"2024-03-04T10:15:30",
		"2024-03-04T10:15:30Z",
		"2024-03-04T12:15:30+02:00",
		" 2024-03-04 10:15:30 ",
	}
	for _, in := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "input %q parsed to %s", in, got)
	}

	got, err := ParseTimestamp("2024-03-04T10:15:30.123456")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04 10:15:30", FormatTimestamp(got), "fractional seconds are dropped on format")

	got, err = ParseTimestamp("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04 00:00:00", FormatTimestamp(got))

	for _, bad := range []string{"", "yesterday", "04/03/2024", "2024-13-01 00:00:00"} {
		_, err := ParseTimestamp(bad)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, bad)
	}
}

func TestFormatTimestampSortsChronologically(t *testing.T) {
	base := time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC)
	var formatted []string
	for i := 0; i < 5; i++ {
		formatted = append(formatted, FormatTimestamp(base.Add(time.Duration(i)*time.Second)))
	}
	sorted := append([]string(nil), formatted...)
	sort.Strings(sorted)
	assert.Equal(t, formatted, sorted)
	assert.Equal(t, "2024-01-01 00:00:00", formatted[2])

	local := time.Date(2024, 1, 1, 5, 0, 0, 0, time.FixedZone("plus5", 5*3600))
	assert.Equal(t, "2024-01-01 00:00:00", FormatTimestamp(local), "format always writes UTC")
}

func TestNormalizeTimestamp(t *testing.T) {
	out, err := NormalizeTimestamp("2024-03-04T10:15:30.5Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04 10:15:30", out)

	_, err = NormalizeTimestamp("not a time")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, IntervalHour, ParseInterval("hour"))
	assert.Equal(t, IntervalDay, ParseInterval("day"))
	assert.Equal(t, IntervalWeek, ParseInterval(" WEEK "))
	assert.Equal(t, IntervalHour, ParseInterval("month"))
	assert.Equal(t, IntervalHour, ParseInterval(""))
}

func TestIntervalBucketKey(t *testing.T) {
	ts := time.Date(2024, 3, 6, 14, 45, 12, 0, time.UTC)

	assert.Equal(t, "2024-03-06 14:00:00", IntervalHour.BucketKey(ts))
	assert.Equal(t, "2024-03-06 00:00:00", IntervalDay.BucketKey(ts))
	assert.Equal(t, "2024-W10", IntervalWeek.BucketKey(ts))
	assert.Equal(t, "2024-03-06 14:00:00", Interval("bogus").BucketKey(ts))

	// Monday and Sunday of the same ISO week share a bucket.
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, IntervalWeek.BucketKey(monday), IntervalWeek.BucketKey(sunday))

	// ISO week year differs from the calendar year at the boundary.
	assert.Equal(t, "2020-W53", IntervalWeek.BucketKey(time.Date(2021, 1, 3, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-W01", IntervalWeek.BucketKey(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)))
}

func TestCatalogHelpers(t *testing.T) {
	assert.Equal(t, "Stock-AAPL", InstrumentDeviceName("AAPL"))

	symbol, ok := SymbolFromDevice("Stock-MSFT")
	assert.True(t, ok)
	assert.Equal(t, "MSFT", symbol)

	_, ok = SymbolFromDevice("Stock API")
	assert.False(t, ok)

	assert.Equal(t, "cpu_usage", MetricKey("CPU Usage"))
	assert.Equal(t, "change_percent", MetricKey("Change Percent"))
}

func TestSampleValues(t *testing.T) {
	sys := SystemSample{CPUPercent: 12.5, ThreadCount: 900}
	values := sys.Values()
	assert.Len(t, values, 5)
	assert.Equal(t, 12.5, values[MetricCPUUsage])
	assert.Equal(t, 0.0, values[MetricDiskUsage], "missing fields store as zero")
	assert.Equal(t, 900.0, values[MetricThreadCount])

	q := Quote{Price: 101.5, MarketCap: 1.015e11}
	qv := q.Values()
	assert.Len(t, qv, 5)
	assert.Equal(t, 101.5, qv[MetricPrice])
	assert.Equal(t, 0.0, qv[MetricVolume])
}
