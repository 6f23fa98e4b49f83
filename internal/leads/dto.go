package leads

// CreateLeadRequest carries the fields accepted on lead creation.
type CreateLeadRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Company      *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	MobileNumber *string `json:"mobile_number,omitempty" validate:"omitempty,max=50"`
	OwnerID      int64   `json:"owner_id" validate:"required,gt=0"`
	Status       string  `json:"leads_status" validate:"omitempty"`
	Source       *string `json:"source,omitempty" validate:"omitempty,max=50"`
	Comments     *string `json:"comments,omitempty"`
}

// UpdateLeadRequest carries partial updates; nil fields are untouched.
type UpdateLeadRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Company      *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	MobileNumber *string `json:"mobile_number,omitempty" validate:"omitempty,max=50"`
	OwnerID      *int64  `json:"owner_id,omitempty" validate:"omitempty,gt=0"`
	Status       *string `json:"leads_status,omitempty"`
	Source       *string `json:"source,omitempty" validate:"omitempty,max=50"`
	Comments     *string `json:"comments,omitempty"`
}

// ListLeadsRequest scopes a listing.
type ListLeadsRequest struct {
	OwnerID *int64
	Status  *string
	Limit   int
	Offset  int
}
