package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQuarterBounds(t *testing.T) {
	cases := []struct {
		name  string
		ref   time.Time
		start time.Time
		end   time.Time
	}{
		{"mid Q1", day(2025, time.February, 14), day(2025, time.January, 1), day(2025, time.March, 31)},
		{"first day of Q2", day(2025, time.April, 1), day(2025, time.April, 1), day(2025, time.June, 30)},
		{"last day of Q3", day(2025, time.September, 30), day(2025, time.July, 1), day(2025, time.September, 30)},
		{"Q4", day(2025, time.November, 11), day(2025, time.October, 1), day(2025, time.December, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := QuarterBounds(tc.ref)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

func TestNextQuarterBounds_RollsIntoNextYear(t *testing.T) {
	start, end := NextQuarterBounds(day(2025, time.December, 15))
	assert.Equal(t, day(2026, time.January, 1), start)
	assert.Equal(t, day(2026, time.March, 31), end)
}

func TestWeekStart(t *testing.T) {
	// 2025-06-16 is a Monday.
	monday := day(2025, time.June, 16)
	assert.Equal(t, monday, WeekStart(monday))
	assert.Equal(t, monday, WeekStart(day(2025, time.June, 18)))
	assert.Equal(t, monday, WeekStart(day(2025, time.June, 22))) // Sunday maps back
	assert.Equal(t, monday.AddDate(0, 0, -7), PrevWeekStart(monday))
}

func TestWeekStart_NormalizesTimeOfDay(t *testing.T) {
	ref := time.Date(2025, time.June, 18, 23, 45, 1, 0, time.UTC)
	assert.Equal(t, day(2025, time.June, 16), WeekStart(ref))
}

func TestPrevMonthFirstMonday(t *testing.T) {
	// Previous month is June 2025; June 1 is a Sunday, so the anchor Monday
	// is May 26.
	got := PrevMonthFirstMonday(day(2025, time.July, 20))
	assert.Equal(t, day(2025, time.May, 26), got)

	// Previous month of January is December of the prior year.
	got = PrevMonthFirstMonday(day(2025, time.January, 10))
	assert.Equal(t, day(2024, time.November, 25), got)
}

func TestMonthSpans(t *testing.T) {
	spans := monthSpans(day(2025, time.January, 1), day(2025, time.March, 31))
	assert.Len(t, spans, 3)
	assert.Equal(t, day(2025, time.February, 1), spans[1].start)
	assert.Equal(t, day(2025, time.February, 28), spans[1].end)
	assert.Equal(t, day(2025, time.March, 31), spans[2].end)
}
