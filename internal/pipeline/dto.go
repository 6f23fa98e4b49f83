package pipeline

import "time"

// CreateDealRequest carries the fields accepted on deal creation.
type CreateDealRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Company      *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	MobileNumber *string `json:"mobile_number,omitempty" validate:"omitempty,max=50"`
	OwnerID      int64   `json:"owner_id" validate:"required,gt=0"`
	SalesLeadID  *int64  `json:"sales_lead_id,omitempty" validate:"omitempty,gt=0"`
	Product      *string `json:"product,omitempty" validate:"omitempty,max=200"`

	TCV          *float64 `json:"tcv_usd,omitempty"`
	ContractTerm int      `json:"contract_term_yrs" validate:"omitempty,gte=0"`
	MRC          float64  `json:"mrc_usd" validate:"omitempty,gte=0"`
	OTC          float64  `json:"otc_usd" validate:"omitempty,gte=0"`

	Stage   string  `json:"stage"`
	WinRate float64 `json:"win_rate" validate:"omitempty,gte=0,lte=1"`

	EstSignDate    *time.Time `json:"est_sign_date,omitempty"`
	ActivationDate *time.Time `json:"est_act_date,omitempty"`

	Comments *string `json:"comments,omitempty"`
}

// UpdateDealRequest carries partial updates; nil fields are untouched.
type UpdateDealRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=120"`
	OwnerID      *int64   `json:"owner_id,omitempty" validate:"omitempty,gt=0"`
	Product      *string  `json:"product,omitempty" validate:"omitempty,max=200"`
	TCV          *float64 `json:"tcv_usd,omitempty"`
	ContractTerm *int     `json:"contract_term_yrs,omitempty" validate:"omitempty,gte=0"`
	MRC          *float64 `json:"mrc_usd,omitempty" validate:"omitempty,gte=0"`
	OTC          *float64 `json:"otc_usd,omitempty" validate:"omitempty,gte=0"`
	Stage        *string  `json:"stage,omitempty"`
	WinRate      *float64 `json:"win_rate,omitempty" validate:"omitempty,gte=0,lte=1"`

	EstSignDate    *time.Time `json:"est_sign_date,omitempty"`
	ActivationDate *time.Time `json:"est_act_date,omitempty"`

	Comments *string `json:"comments,omitempty"`
}

// ListDealsRequest scopes a listing.
type ListDealsRequest struct {
	OwnerID     *int64
	Stage       *string
	ExcludeLost bool
	Limit       int
	Offset      int
}
