package pipeline

import "time"

// Deal stages in lifecycle order. Lost deals are excluded from every revenue
// and count aggregate.
const (
	StageProspecting   = "1) Prospecting"
	StageLeadQualified = "2) Lead Qualified"
	StageDemoMeeting   = "3) Demo/Meeting"
	StageProposal      = "4) Proposal Submitted"
	StageNegotiation   = "5) Negotiation"
	StageDealWon       = "6a) Deal Won"
	StageDealLost      = "6b) Deal Lost"
	StageActivated     = "7) Activated"
)

// StageOptions enumerates the valid deal stages.
var StageOptions = []string{
	StageProspecting,
	StageLeadQualified,
	StageDemoMeeting,
	StageProposal,
	StageNegotiation,
	StageDealWon,
	StageDealLost,
	StageActivated,
}

// Deal is a pipeline opportunity.
type Deal struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Company      *string `json:"company,omitempty"`
	Industry     *string `json:"industry,omitempty"`
	Email        *string `json:"email,omitempty"`
	MobileNumber *string `json:"mobile_number,omitempty"`
	OwnerID      int64   `json:"owner_id"`
	SalesLeadID  *int64  `json:"sales_lead_id,omitempty"`
	Product      *string `json:"product,omitempty"`

	TCV          float64 `json:"tcv_usd"`
	ContractTerm int     `json:"contract_term_yrs"`
	MRC          float64 `json:"mrc_usd"`
	OTC          float64 `json:"otc_usd"`

	Stage   string  `json:"stage"`
	WinRate float64 `json:"win_rate"`

	EstSignDate    *time.Time `json:"est_sign_date,omitempty"`
	ActivationDate *time.Time `json:"est_act_date,omitempty"`

	Comments  *string   `json:"comments,omitempty"`
	DateAdded time.Time `json:"date_added"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DerivedTCV computes total contract value from the recurring and one-time
// components: MRC over twelve months per contract year plus OTC.
func (d Deal) DerivedTCV() float64 {
	term := d.ContractTerm
	if term <= 0 {
		term = 0
	}
	return d.MRC*12*float64(term) + d.OTC
}

// ValidStage reports whether s is one of the allowed stages.
func ValidStage(s string) bool {
	for _, opt := range StageOptions {
		if s == opt {
			return true
		}
	}
	return false
}
