package metrics

import (
	"fmt"
	"time"
)

// Key identifies one weekly snapshot row. A nil OwnerID addresses the
// company-wide aggregate.
type Key struct {
	OwnerID   *int64
	WeekStart time.Time
}

// OwnerKey builds the key for a salesperson's snapshot.
func OwnerKey(ownerID int64, weekStart time.Time) Key {
	return Key{OwnerID: &ownerID, WeekStart: Date(weekStart)}
}

// CompanyKey builds the key for the organization-wide snapshot.
func CompanyKey(weekStart time.Time) Key {
	return Key{WeekStart: Date(weekStart)}
}

func (k Key) String() string {
	if k.OwnerID == nil {
		return fmt.Sprintf("company/%s", k.WeekStart.Format("2006-01-02"))
	}
	return fmt.Sprintf("%d/%s", *k.OwnerID, k.WeekStart.Format("2006-01-02"))
}

// Snapshot is one aggregated metrics row for an owner (or the company) and a
// given week. Owned and mutated exclusively by the aggregator; read-only to
// dashboard collaborators.
type Snapshot struct {
	OwnerID   *int64    `json:"owner_id,omitempty"`
	WeekStart time.Time `json:"week_start"`

	LeadsCount            int   `json:"leads_count"`
	QualifiedLeadsCount   int   `json:"qualified_leads_count"`
	PipelineCount         int   `json:"pipeline_count"`
	TCV                   int64 `json:"tcv"`
	CurrentQuarterRevenue int64 `json:"current_qtr_revenue"`
	NextQuarterRevenue    int64 `json:"next_qtr_revenue"`

	LeadsVsLastWeek     int   `json:"leads_vs_last_week"`
	QualifiedVsLastWeek int   `json:"qualified_vs_last_week"`
	PipelineVsLastWeek  int   `json:"pipeline_vs_last_week"`
	TCVVsLastWeek       int64 `json:"tcv_vs_last_week"`

	LeadsVsLastMonth     int   `json:"leads_vs_last_month"`
	QualifiedVsLastMonth int   `json:"qualified_vs_last_month"`
	PipelineVsLastMonth  int   `json:"pipeline_vs_last_month"`
	TCVVsLastMonth       int64 `json:"tcv_vs_last_month"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the snapshot's store key.
func (s Snapshot) Key() Key {
	return Key{OwnerID: s.OwnerID, WeekStart: Date(s.WeekStart)}
}
