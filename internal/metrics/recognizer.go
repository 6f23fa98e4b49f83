package metrics

import "time"

// Opportunity stage sentinels the aggregation engine needs to know about.
// The CRUD layer owns the full stage lifecycle.
const StageDealLost = "6b) Deal Lost"

// Opportunity is the read-only view of a pipeline deal consumed by the
// revenue recognizer and the aggregator.
type Opportunity struct {
	ID             int64
	OwnerID        int64
	Stage          string
	MRC            float64
	OTC            float64
	TCV            float64
	ActivationDate *time.Time
}

// Lost reports whether the deal is excluded from every aggregate.
func (o Opportunity) Lost() bool {
	return o.Stage == StageDealLost
}

// QuarterRevenue computes recognized revenue for a set of opportunities within
// the closed window [quarterStart, quarterEnd].
//
// Per opportunity: lost deals and deals without an activation date contribute
// nothing, as do deals activating after the window. OTC is added in full when
// the activation date is on or before the quarter end. MRC is recognized per
// constituent month: full when the deal activated before the month, prorated
// over the remaining days when it activates inside the month, zero otherwise.
// The summed total is truncated, not rounded, to a whole amount.
func QuarterRevenue(opps []Opportunity, quarterStart, quarterEnd time.Time) int64 {
	var total float64
	for _, o := range opps {
		if o.Lost() || o.ActivationDate == nil {
			continue
		}
		act := Date(*o.ActivationDate)
		if act.After(quarterEnd) {
			continue
		}

		total += amountOrZero(o.OTC)

		mrc := amountOrZero(o.MRC)
		if mrc == 0 {
			continue
		}
		for _, m := range monthSpans(quarterStart, quarterEnd) {
			switch {
			case act.Before(m.start):
				total += mrc
			case !act.After(m.end):
				daysInMonth := m.end.Day()
				activeDays := m.end.Day() - act.Day() + 1
				total += mrc * float64(activeDays) / float64(daysInMonth)
			}
		}
	}
	return int64(total)
}

// amountOrZero treats malformed monetary inputs as zero.
func amountOrZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
