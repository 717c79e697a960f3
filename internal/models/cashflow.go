package models

import "time"

// Point categories, for presentation only
const (
	PointIncome  = "income"
	PointExpense = "expense"
	PointBalance = "balance"
)

// CashflowPoint represents the projection for a specific day
type CashflowPoint struct {
	Date           string  `json:"date"` // Format: YYYY-MM-DD
	Balance        float64 `json:"balance"`
	RunningBalance float64 `json:"running_balance"` // may be negative
	Income         float64 `json:"income"`
	Expenses       float64 `json:"expenses"`
	Category       string  `json:"category"`
}

// FinancialHealthSummary is derived from a CashflowPoint sequence.
type FinancialHealthSummary struct {
	Score           int      `json:"score"`
	CrisisDate      *string  `json:"crisis_date,omitempty"`
	DaysUntilCrisis *int     `json:"days_until_crisis,omitempty"`
	Recommendations []string `json:"recommendations"`
}

// CashflowForecast is what the forecast endpoint returns.
type CashflowForecast struct {
	InitialBalance    float64                `json:"initial_balance"`
	MonthlyIncome     float64                `json:"monthly_income"`
	AverageDailySpend float64                `json:"average_daily_spend"`
	ForecastedDays    int                    `json:"forecasted_days"`
	Points            []CashflowPoint        `json:"points"`
	Health            FinancialHealthSummary `json:"health"`
	GeneratedAt       time.Time              `json:"generated_at"`
}
