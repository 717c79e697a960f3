package models

import "time"

// ProgramEstimate is the eligibility outcome for a single benefit program.
type ProgramEstimate struct {
	Eligible bool    `json:"eligible"`
	Amount   float64 `json:"amount"` // monthly, zero when not eligible
}

// EligibilityResult holds the estimates for all supported programs.
type EligibilityResult struct {
	SNAP         ProgramEstimate `json:"snap"`
	WIC          ProgramEstimate `json:"wic"`
	TANF         ProgramEstimate `json:"tanf"`
	EITC         ProgramEstimate `json:"eitc"`
	LIHEAP       ProgramEstimate `json:"liheap"`
	TotalMonthly float64         `json:"total_monthly"`
}

// EligibilityRecord is a stored EligibilityResult together with its input.
type EligibilityRecord struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	Household    HouseholdProfile  `json:"household"`
	Result       EligibilityResult `json:"result"`
	CalculatedAt time.Time         `json:"calculated_at"`
}
