package leads

import "time"

// Lead statuses. Unqualified leads are excluded from lead counts; Qualified
// leads feed the qualified-lead metric and may convert into pipeline deals.
const (
	StatusQualified          = "Qualified"
	StatusWaitingForResponse = "Waiting for Response"
	StatusUnqualified        = "Unqualified"
	StatusWaitingContact     = "Waiting to be Contacted"
)

// StatusOptions enumerates the valid lead statuses.
var StatusOptions = []string{
	StatusQualified,
	StatusWaitingForResponse,
	StatusUnqualified,
	StatusWaitingContact,
}

// Lead is a sales prospect.
type Lead struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Company      *string   `json:"company,omitempty"`
	Industry     *string   `json:"industry,omitempty"`
	Email        *string   `json:"email,omitempty"`
	MobileNumber *string   `json:"mobile_number,omitempty"`
	OwnerID      int64     `json:"owner_id"`
	Status       string    `json:"leads_status"`
	Source       *string   `json:"source,omitempty"`
	Comments     *string   `json:"comments,omitempty"`
	DateAdded    time.Time `json:"date_added"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidStatus reports whether s is one of the allowed lead statuses.
func ValidStatus(s string) bool {
	for _, opt := range StatusOptions {
		if s == opt {
			return true
		}
	}
	return false
}
