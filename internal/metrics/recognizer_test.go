package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func TestQuarterRevenue_SkipsNonContributing(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{
		{ID: 1, Stage: StageDealLost, MRC: 1000, OTC: 5000, ActivationDate: datePtr(2025, time.January, 10)},
		{ID: 2, Stage: "5) Negotiation", MRC: 1000, OTC: 5000}, // no activation date
		{ID: 3, Stage: "6a) Deal Won", MRC: 1000, OTC: 5000, ActivationDate: datePtr(2025, time.April, 1)},
	}
	assert.Equal(t, int64(0), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_FullQuarterPlusOTC(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "7) Activated",
		MRC:            2000,
		OTC:            500,
		ActivationDate: datePtr(2024, time.December, 1),
	}}
	// Activated before the quarter: three full months of MRC plus OTC.
	assert.Equal(t, int64(2000*3+500), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_ProratesActivationMonth(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "6a) Deal Won",
		MRC:            3000,
		OTC:            1000,
		ActivationDate: datePtr(2025, time.February, 15),
	}}
	// February contributes 14 of 28 days (Feb 15 through Feb 28), March is a
	// full month, January nothing. 3000*14/28 + 3000 + 1000 = 5500.
	assert.Equal(t, int64(5500), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_ActivationOnQuarterEnd(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "6a) Deal Won",
		MRC:            3100,
		OTC:            200,
		ActivationDate: datePtr(2025, time.March, 31),
	}}
	// One day of March MRC plus the full OTC.
	assert.Equal(t, int64(3100/31+200), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_OTCCountedForLaterQuarters(t *testing.T) {
	// A deal activated in Q1 keeps contributing its OTC when the recognizer
	// is pointed at Q2, on top of three full months of MRC. Callers that sum
	// quarters therefore see the OTC more than once.
	q2Start, q2End := day(2025, time.April, 1), day(2025, time.June, 30)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "7) Activated",
		MRC:            1000,
		OTC:            900,
		ActivationDate: datePtr(2025, time.February, 1),
	}}
	assert.Equal(t, int64(1000*3+900), QuarterRevenue(opps, q2Start, q2End))
}

func TestQuarterRevenue_NegativeAmountsTreatedAsZero(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "6a) Deal Won",
		MRC:            -500,
		OTC:            -100,
		ActivationDate: datePtr(2025, time.January, 1),
	}}
	assert.Equal(t, int64(0), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_TruncatesFractionalTotal(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{{
		ID:             1,
		Stage:          "6a) Deal Won",
		MRC:            100,
		ActivationDate: datePtr(2025, time.January, 30),
	}}
	// January: 2 of 31 days -> 6.45..., plus February and March in full.
	// 206.45... truncates to 206.
	assert.Equal(t, int64(206), QuarterRevenue(opps, q1Start, q1End))
}

func TestQuarterRevenue_SumsMultipleOpportunities(t *testing.T) {
	q1Start, q1End := day(2025, time.January, 1), day(2025, time.March, 31)
	opps := []Opportunity{
		{ID: 1, Stage: "7) Activated", MRC: 1000, ActivationDate: datePtr(2024, time.November, 1)},
		{ID: 2, Stage: "6a) Deal Won", OTC: 250, ActivationDate: datePtr(2025, time.March, 1)},
		{ID: 3, Stage: StageDealLost, MRC: 9999, OTC: 9999, ActivationDate: datePtr(2025, time.January, 1)},
	}
	assert.Equal(t, int64(1000*3+250), QuarterRevenue(opps, q1Start, q1End))
}
