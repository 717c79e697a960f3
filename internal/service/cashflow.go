package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oasis-app/oasis-service/internal/cashflow"
	"github.com/oasis-app/oasis-service/internal/config"
	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
)

// spendLookback is how much history feeds the average daily spend.
const spendLookback = 90 * 24 * time.Hour

// AddTransaction records a transaction on the user's account and returns the
// new balance.
func (s *Service) AddTransaction(ctx context.Context, userID int64, t models.Transaction) (*models.Transaction, float64, error) {
	t.Type = strings.ToLower(strings.TrimSpace(t.Type))
	if t.Type != models.TransactionIncome && t.Type != models.TransactionExpense {
		return nil, 0, invalid("type must be %q or %q", models.TransactionIncome, models.TransactionExpense)
	}
	if t.Amount == 0 || math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return nil, 0, invalid("amount must be a non-zero number")
	}
	t.Amount = math.Abs(t.Amount)
	if t.OccurredAt.IsZero() {
		t.OccurredAt = s.now()
	}

	account, err := s.store.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	t.AccountID = account.ID

	balance, err := s.store.AddTransaction(ctx, &t)
	if err != nil {
		return nil, 0, err
	}

	s.log.WithField("user_id", userID).Infof("Transaction %d recorded: %s %.2f", t.ID, t.Type, t.Amount)
	return &t, balance, nil
}

// ListTransactions returns the user's transactions since the given time.
func (s *Service) ListTransactions(ctx context.Context, userID int64, since time.Time) ([]models.Transaction, error) {
	account, err := s.store.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, account.ID, since)
}

// ForecastCashflow projects the user's balance for days days. If the inputs
// cannot be loaded it returns an empty projection with the neutral summary
// rather than an error.
func (s *Service) ForecastCashflow(ctx context.Context, userID int64, days int) (models.CashflowForecast, error) {
	if days == 0 {
		days = s.config.ForecastDays
	}
	if days < 1 || days > config.MaxForecastDays {
		return models.CashflowForecast{}, invalid("days must be between 1 and %d", config.MaxForecastDays)
	}

	logger := s.log.WithField("user_id", userID)
	now := s.now()

	in, err := s.forecastInput(ctx, userID, now)
	if err != nil {
		logger.Warnf("Forecast inputs unavailable, returning neutral summary: %v", err)
		return models.CashflowForecast{
			ForecastedDays: days,
			Points:         []models.CashflowPoint{},
			Health:         cashflow.Neutral(),
			GeneratedAt:    now,
		}, nil
	}
	in.Horizon = days

	points, health := cashflow.Forecast(in)

	if err := s.store.SaveHealthSnapshot(ctx, userID, health); err != nil {
		logger.Errorf("Failed to save health snapshot: %v", err)
	}

	return models.CashflowForecast{
		InitialBalance:    in.StartBalance,
		MonthlyIncome:     in.MonthlyIncome,
		AverageDailySpend: in.AverageDailySpend,
		ForecastedDays:    days,
		Points:            points,
		Health:            health,
		GeneratedAt:       now,
	}, nil
}

func (s *Service) forecastInput(ctx context.Context, userID int64, now time.Time) (cashflow.Input, error) {
	account, err := s.store.FindAccountByUserID(ctx, userID)
	if err != nil {
		return cashflow.Input{}, fmt.Errorf("failed to load account: %w", err)
	}

	var income float64
	household, err := s.store.GetHousehold(ctx, userID)
	switch {
	case err == nil:
		income = household.MonthlyIncome
	case errors.Is(err, repository.ErrNotFound):
	default:
		return cashflow.Input{}, fmt.Errorf("failed to load household: %w", err)
	}

	history, err := s.store.ListTransactions(ctx, account.ID, now.Add(-spendLookback))
	if err != nil {
		return cashflow.Input{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	return cashflow.Input{
		StartBalance:      account.Balance,
		MonthlyIncome:     income,
		AverageDailySpend: cashflow.AverageDailySpend(history),
		Start:             now,
	}, nil
}

// ScanCrises forecasts every user that opted in to alerts and notifies those
// whose balance is projected to run out within the configured window. It
// returns the number of alerts sent.
func (s *Service) ScanCrises(ctx context.Context) (int, error) {
	if s.alerter == nil {
		return 0, nil
	}
	users, err := s.store.ListAlertUsers(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		forecast, _ := s.ForecastCashflow(ctx, u.ID, s.config.ForecastDays)
		days := forecast.Health.DaysUntilCrisis
		if days == nil || *days >= s.config.AlertWithinDays {
			continue
		}
		if err := s.alerter.SendCrisisAlert(u.Email, u.Username, forecast.Health); err != nil {
			s.log.WithField("user_id", u.ID).Errorf("Crisis alert failed: %v", err)
			continue
		}
		sent++
	}

	s.log.Infof("Crisis scan finished: %d users checked, %d alerts sent", len(users), sent)
	return sent, nil
}
