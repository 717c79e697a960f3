// Package eligibility estimates benefit program eligibility for a household.
package eligibility

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/oasis-app/oasis-service/internal/models"
)

// Program rule constants
const (
	snapIncomeLimit      = 1.30 // of poverty threshold
	snapStandardDeduct   = 198.0
	snapNetIncomeRate    = 0.30
	wicIncomeLimit       = 1.85
	wicPerChildBenefit   = 50.0
	wicMaxChildren       = 3
	tanfIncomeLimit      = 0.50
	tanfBaseBenefit      = 300.0
	tanfPerPersonBenefit = 50.0
	eitcIncomeCeiling    = 60000.0
	eitcPhaseOutStart    = 20000.0
	liheapIncomeLimit    = 1.50
	liheapAnnualBenefit  = 500.0
	monthsPerYear        = 12
)

// Calculator evaluates program rules against a poverty table.
type Calculator struct {
	poverty Table
}

// NewCalculator creates a calculator using the built-in poverty guidelines.
func NewCalculator() *Calculator {
	return &Calculator{poverty: defaultPovertyTable}
}

// WithPovertyTable returns a copy of the calculator using the given table.
// An empty table is ignored.
func (c *Calculator) WithPovertyTable(t Table) *Calculator {
	if t.Len() == 0 {
		return &Calculator{poverty: c.poverty}
	}
	return &Calculator{poverty: t}
}

// PovertyThreshold returns the annual poverty threshold for a household size.
func (c *Calculator) PovertyThreshold(size int) float64 {
	return c.poverty.Lookup(size)
}

// Calculate computes eligibility and monthly estimates for every program.
// Out-of-range inputs are clamped; it never fails.
func (c *Calculator) Calculate(h models.HouseholdProfile) models.EligibilityResult {
	size := h.HouseholdSize
	if size < 1 {
		size = 1
	}
	children := h.Children
	if children < 0 {
		children = 0
	}
	monthly := nonNegative(h.MonthlyIncome)
	annual := monthly * monthsPerYear
	poverty := c.poverty.Lookup(size)

	var res models.EligibilityResult

	if annual <= poverty*snapIncomeLimit {
		netIncome := math.Max(0, monthly-snapStandardDeduct)
		amount := snapMaxBenefitTable.Lookup(size) - snapNetIncomeRate*netIncome
		res.SNAP = estimate(roundDollars(math.Max(0, amount)))
	}

	if annual <= poverty*wicIncomeLimit && (children > 0 || h.Pregnant) {
		res.WIC = estimate(roundCents(wicPerChildBenefit * float64(min(children, wicMaxChildren))))
	}

	if annual <= poverty*tanfIncomeLimit && children > 0 {
		amount := tanfBaseBenefit + tanfPerPersonBenefit*float64(size-2)
		res.TANF = estimate(roundCents(math.Max(0, amount)))
	}

	if annual <= eitcIncomeCeiling && monthly > 0 {
		credit := eitcMaxCreditTable.Lookup(children)
		if annual > eitcPhaseOutStart {
			credit *= 1 - (annual-eitcPhaseOutStart)/(eitcIncomeCeiling-eitcPhaseOutStart)
		}
		res.EITC = estimate(roundCents(math.Max(0, credit) / monthsPerYear))
	}

	if annual <= poverty*liheapIncomeLimit {
		res.LIHEAP = estimate(roundCents(liheapAnnualBenefit / monthsPerYear))
	}

	total := decimal.Zero
	for _, p := range []models.ProgramEstimate{res.SNAP, res.WIC, res.TANF, res.EITC, res.LIHEAP} {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	res.TotalMonthly = total.Round(2).InexactFloat64()

	return res
}

func estimate(amount float64) models.ProgramEstimate {
	return models.ProgramEstimate{Eligible: true, Amount: amount}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func roundDollars(v float64) float64 {
	return decimal.NewFromFloat(v).Round(0).InexactFloat64()
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
