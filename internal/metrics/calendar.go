package metrics

import "time"

// Date truncates a timestamp to its calendar day in UTC. All calendar math in
// this package operates on values produced by it.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// QuarterBounds returns the first and last calendar day of the quarter
// containing ref. Quarters group months in threes starting January.
func QuarterBounds(ref time.Time) (start, end time.Time) {
	startMonth := (int(ref.Month())-1)/3*3 + 1
	start = time.Date(ref.Year(), time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 3, -1)
	return start, end
}

// NextQuarterBounds returns the quarter immediately following the one
// containing ref, rolling Q4 into Q1 of the next year.
func NextQuarterBounds(ref time.Time) (start, end time.Time) {
	curStart, _ := QuarterBounds(ref)
	start = curStart.AddDate(0, 3, 0)
	end = start.AddDate(0, 3, -1)
	return start, end
}

// WeekStart returns the Monday on or before ref.
func WeekStart(ref time.Time) time.Time {
	d := Date(ref)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// PrevWeekStart returns the Monday one week before WeekStart(ref).
func PrevWeekStart(ref time.Time) time.Time {
	return WeekStart(ref).AddDate(0, 0, -7)
}

// PrevMonthFirstMonday returns the Monday on or before the first day of the
// calendar month preceding ref's month. It anchors the month-over-month
// snapshot comparison.
func PrevMonthFirstMonday(ref time.Time) time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return WeekStart(first)
}

type monthSpan struct {
	start time.Time
	end   time.Time
}

// monthSpans splits [start, end] into whole calendar months.
func monthSpans(start, end time.Time) []monthSpan {
	var spans []monthSpan
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		monthEnd := cur.AddDate(0, 1, -1)
		spans = append(spans, monthSpan{start: cur, end: monthEnd})
		cur = cur.AddDate(0, 1, 0)
	}
	return spans
}
