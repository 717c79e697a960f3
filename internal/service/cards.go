package service

import (
	"context"
	"errors"

	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
	"github.com/oasis-app/oasis-service/internal/utils"
)

// LinkEBTCard stores an encrypted EBT card number for the user.
func (s *Service) LinkEBTCard(ctx context.Context, userID int64, rawNumber string, snapBalance, cashBalance float64) (*models.EBTCard, error) {
	number, err := utils.NormalizeCardNumber(rawNumber)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if snapBalance < 0 || cashBalance < 0 {
		return nil, invalid("balances must not be negative")
	}

	encrypted, err := utils.Encrypt(number, s.encKey)
	if err != nil {
		return nil, err
	}

	card := &models.EBTCard{
		UserID:      userID,
		CardNumber:  encrypted,
		HMAC:        utils.GenerateHMAC(number, s.config.HMACSecret),
		SNAPBalance: snapBalance,
		CashBalance: cashBalance,
	}
	if err := s.store.CreateEBTCard(ctx, card); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("card is already linked")
		}
		return nil, err
	}

	card.CardNumber = utils.MaskCardNumber(number)
	s.log.WithField("user_id", userID).Infof("EBT card %d linked", card.ID)
	return card, nil
}

// ListEBTCards returns the user's cards with masked numbers.
func (s *Service) ListEBTCards(ctx context.Context, userID int64) ([]models.EBTCard, error) {
	cards, err := s.store.ListEBTCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		number, err := utils.Decrypt(cards[i].CardNumber, s.encKey)
		if err != nil {
			s.log.WithField("user_id", userID).Errorf("Failed to decrypt card %d: %v", cards[i].ID, err)
			cards[i].CardNumber = ""
			continue
		}
		cards[i].CardNumber = utils.MaskCardNumber(number)
	}
	return cards, nil
}

// UpdateEBTBalance records the latest balances read from a card.
func (s *Service) UpdateEBTBalance(ctx context.Context, userID, cardID int64, snapBalance, cashBalance float64) error {
	if snapBalance < 0 || cashBalance < 0 {
		return invalid("balances must not be negative")
	}
	return s.store.UpdateEBTBalance(ctx, userID, cardID, snapBalance, cashBalance)
}
