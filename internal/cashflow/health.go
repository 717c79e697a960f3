package cashflow

import "github.com/oasis-app/oasis-service/internal/models"

const (
	urgentCrisisDays  = 14
	lowAverageBalance = 200.0
	highDailyExpense  = 50.0
	neutralScore      = 50
	healthyScore      = 100
)

var scoreBands = []struct {
	under int
	score int
}{
	{7, 30},
	{14, 50},
	{21, 70},
}

const distantCrisisScore = 85

// Recommendation texts, in the order they are emitted.
const (
	RecommendFoodBank  = "Your balance may run out within two weeks. Visit a nearby food bank to stretch your groceries."
	RecommendBenefits  = "Check your eligibility for SNAP, WIC and other benefits you may not be receiving yet."
	RecommendGigWork   = "Your average balance is low. Short gig work or benefits you qualify for could build a cushion."
	RecommendDiscounts = "Your daily spending is high. Discount grocers and store brands can lower food costs."
)

// Neutral is returned when the inputs for a forecast could not be loaded.
func Neutral() models.FinancialHealthSummary {
	return models.FinancialHealthSummary{Score: neutralScore, Recommendations: []string{}}
}

// CrisisIndex returns the index of the first point whose running balance is
// at or below zero, or -1.
func CrisisIndex(points []models.CashflowPoint) int {
	for i, p := range points {
		if p.RunningBalance <= 0 {
			return i
		}
	}
	return -1
}

// Score maps days until crisis to a 0-100 score; negative means no crisis.
func Score(daysUntilCrisis int) int {
	if daysUntilCrisis < 0 {
		return healthyScore
	}
	for _, b := range scoreBands {
		if daysUntilCrisis < b.under {
			return b.score
		}
	}
	return distantCrisisScore
}

// Health derives the summary for a projection.
func Health(points []models.CashflowPoint) models.FinancialHealthSummary {
	summary := models.FinancialHealthSummary{Recommendations: []string{}}

	idx := CrisisIndex(points)
	summary.Score = Score(idx)
	if idx >= 0 {
		date := points[idx].Date
		days := idx
		summary.CrisisDate = &date
		summary.DaysUntilCrisis = &days
	}

	if len(points) == 0 {
		return summary
	}

	var balanceSum, expenseSum float64
	for _, p := range points {
		balanceSum += p.Balance
		expenseSum += p.Expenses
	}
	avgBalance := balanceSum / float64(len(points))
	avgExpense := expenseSum / float64(len(points))

	if idx >= 0 && idx < urgentCrisisDays {
		summary.Recommendations = append(summary.Recommendations, RecommendFoodBank, RecommendBenefits)
	}
	if avgBalance < lowAverageBalance {
		summary.Recommendations = append(summary.Recommendations, RecommendGigWork)
	}
	if avgExpense > highDailyExpense {
		summary.Recommendations = append(summary.Recommendations, RecommendDiscounts)
	}
	return summary
}
