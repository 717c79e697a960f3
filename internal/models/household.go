package models

// HouseholdProfile is the snapshot the eligibility rules are evaluated against.
type HouseholdProfile struct {
	UserID        int64   `json:"user_id,omitempty"`
	HouseholdSize int     `json:"household_size"`
	MonthlyIncome float64 `json:"monthly_income"`
	Children      int     `json:"children"`
	Pregnant      bool    `json:"pregnant"`
	ZipCode       string  `json:"zip_code,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}
