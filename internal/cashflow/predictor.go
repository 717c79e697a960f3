// Package cashflow projects a household's daily balance and scores its
// financial health.
package cashflow

import (
	"math"
	"time"

	"github.com/oasis-app/oasis-service/internal/models"
)

const (
	// DefaultHorizon is the number of days projected when none is requested.
	DefaultHorizon = 30
	// DefaultDailySpend is used when there is no transaction history.
	DefaultDailySpend = 50.0
	// MinDailySpend is the floor applied to the historical average.
	MinDailySpend = 10.0

	dateLayout = "2006-01-02"
)

// Input is everything needed to run a projection.
type Input struct {
	StartBalance      float64
	MonthlyIncome     float64
	AverageDailySpend float64
	Horizon           int
	Start             time.Time
}

// AverageDailySpend returns the average daily outflow over the span covered
// by the expense transactions in history.
func AverageDailySpend(history []models.Transaction) float64 {
	var (
		total          float64
		oldest, newest time.Time
		seen           bool
	)
	for _, tx := range history {
		if tx.Type == models.TransactionIncome {
			continue
		}
		total += math.Abs(tx.Amount)
		if !seen || tx.OccurredAt.Before(oldest) {
			oldest = tx.OccurredAt
		}
		if !seen || tx.OccurredAt.After(newest) {
			newest = tx.OccurredAt
		}
		seen = true
	}
	if !seen {
		return DefaultDailySpend
	}

	days := math.Max(1, math.Ceil(newest.Sub(oldest).Hours()/24))
	return math.Max(MinDailySpend, total/days)
}

// Project returns exactly in.Horizon points, one per calendar day starting at
// in.Start. Monthly income lands on the first of each month and the average
// spend is taken every day.
func Project(in Input) []models.CashflowPoint {
	horizon := in.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	spend := sanitize(in.AverageDailySpend)
	income := sanitize(in.MonthlyIncome)
	balance := in.StartBalance
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		balance = 0
	}

	start := in.Start
	if start.IsZero() {
		start = time.Now()
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	points := make([]models.CashflowPoint, 0, horizon)
	for i := 0; i < horizon; i++ {
		date := day.AddDate(0, 0, i)
		point := models.CashflowPoint{
			Date:     date.Format(dateLayout),
			Category: models.PointBalance,
		}
		if date.Day() == 1 && income > 0 {
			balance += income
			point.Income = income
			point.Category = models.PointIncome
		}
		if spend > 0 {
			balance -= spend
			point.Expenses = spend
			if point.Category == models.PointBalance {
				point.Category = models.PointExpense
			}
		}
		point.RunningBalance = balance
		point.Balance = math.Max(0, balance)
		points = append(points, point)
	}
	return points
}

// Forecast runs a projection and derives the health summary for it.
func Forecast(in Input) ([]models.CashflowPoint, models.FinancialHealthSummary) {
	points := Project(in)
	return points, Health(points)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
