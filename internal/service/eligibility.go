package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
)

const (
	maxHouseholdSize   = 20
	defaultHistorySize = 20
	maxHistorySize     = 100
)

func validateHousehold(h models.HouseholdProfile) error {
	switch {
	case h.HouseholdSize < 1 || h.HouseholdSize > maxHouseholdSize:
		return invalid("household_size must be between 1 and %d", maxHouseholdSize)
	case h.MonthlyIncome < 0:
		return invalid("monthly_income must not be negative")
	case h.Children < 0:
		return invalid("children must not be negative")
	case h.Children >= h.HouseholdSize:
		return invalid("children must be fewer than household_size")
	}
	return nil
}

// SaveHousehold validates and stores the user's household profile.
func (s *Service) SaveHousehold(ctx context.Context, userID int64, h models.HouseholdProfile) (*models.HouseholdProfile, error) {
	if err := validateHousehold(h); err != nil {
		return nil, err
	}
	h.UserID = userID
	if err := s.store.UpsertHousehold(ctx, &h); err != nil {
		return nil, err
	}
	s.cache.InvalidateEligibility(ctx, userID)

	s.log.WithField("user_id", userID).Infof("Household saved: size %d", h.HouseholdSize)
	return &h, nil
}

// GetHousehold returns the stored profile or ErrNoHousehold.
func (s *Service) GetHousehold(ctx context.Context, userID int64) (*models.HouseholdProfile, error) {
	h, err := s.store.GetHousehold(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoHousehold
	}
	return h, err
}

// CheckEligibility estimates benefits for the given household, or for the
// stored profile when h is nil. An ad-hoc household is not validated: the
// calculator clamps out-of-range values instead. Every check is recorded in
// the user's history, including ones answered from the cache; cache and
// history failures are logged and do not fail the call.
func (s *Service) CheckEligibility(ctx context.Context, userID int64, h *models.HouseholdProfile) (models.EligibilityResult, error) {
	logger := s.log.WithField("user_id", userID)

	stored := h == nil
	if stored {
		profile, err := s.GetHousehold(ctx, userID)
		if err != nil {
			return models.EligibilityResult{}, err
		}
		h = profile
	}

	var (
		result models.EligibilityResult
		hit    bool
	)
	if stored {
		var cached *models.EligibilityResult
		if cached, hit = s.cache.GetEligibility(ctx, userID); hit {
			result = *cached
		}
	}
	if !hit {
		result = s.calc.Calculate(*h)
		if stored {
			s.cache.SetEligibility(ctx, userID, result)
		}
	}

	rec := &models.EligibilityRecord{UserID: userID, Household: *h, Result: result}
	if err := s.store.SaveEligibility(ctx, rec); err != nil {
		logger.Errorf("Failed to save eligibility history: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"snap":   result.SNAP.Eligible,
		"total":  result.TotalMonthly,
		"cached": hit,
	}).Info("Eligibility calculated")
	return result, nil
}

// EligibilityHistory lists past calculations, newest first.
func (s *Service) EligibilityHistory(ctx context.Context, userID int64, limit int) ([]models.EligibilityRecord, error) {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}
	return s.store.ListEligibility(ctx, userID, uint64(limit))
}
