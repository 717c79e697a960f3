package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/oasis-app/oasis-service/internal/cashflow"
	"github.com/oasis-app/oasis-service/internal/coach"
	"github.com/oasis-app/oasis-service/internal/integrations/llm"
	"github.com/oasis-app/oasis-service/internal/models"
)

const (
	chatHistoryTurns = 10
	maxMessageLength = 2000
)

// Chat answers a coach message in a conversation. An empty conversationID
// starts a new conversation.
func (s *Service) Chat(ctx context.Context, userID int64, conversationID, message string) (*models.CoachReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message is required")
	}
	if len(message) > maxMessageLength {
		return nil, invalid("message must be at most %d characters", maxMessageLength)
	}

	logger := s.log.WithField("user_id", userID)

	var history []llm.Message
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else {
		id, err := uuid.Parse(conversationID)
		if err != nil {
			return nil, invalid("conversation_id must be a UUID")
		}
		conversationID = id.String()

		past, err := s.store.ListChatMessages(ctx, userID, conversationID, chatHistoryTurns)
		if err != nil {
			logger.Warnf("Failed to load chat history: %v", err)
		}
		for _, m := range past {
			history = append(history, llm.Message{Role: m.Role, Content: m.Content})
		}
	}

	intent, reply, err := s.coach.Reply(ctx, message, history, s.coachContext(ctx, userID, coach.Classify(message)))
	if err != nil {
		return nil, err
	}

	for _, m := range []*models.ChatMessage{
		{UserID: userID, ConversationID: conversationID, Role: "user", Intent: string(intent), Content: message},
		{UserID: userID, ConversationID: conversationID, Role: "assistant", Intent: string(intent), Content: reply},
	} {
		if err := s.store.SaveChatMessage(ctx, m); err != nil {
			logger.Errorf("Failed to save chat message: %v", err)
		}
	}

	return &models.CoachReply{ConversationID: conversationID, Intent: string(intent), Reply: reply}, nil
}

// coachContext loads only the data the routed intent's prompt uses. Missing
// data leaves the field empty. Nothing is persisted here.
func (s *Service) coachContext(ctx context.Context, userID int64, intent coach.Intent) coach.Context {
	var data coach.Context
	switch intent {
	case coach.IntentBenefits:
		if h, err := s.GetHousehold(ctx, userID); err == nil {
			data.Household = h
			res := s.calc.Calculate(*h)
			data.Eligibility = &res
		}
	case coach.IntentBudget:
		health := cashflow.Neutral()
		if in, err := s.forecastInput(ctx, userID, s.now()); err == nil {
			in.Horizon = s.config.ForecastDays
			_, health = cashflow.Forecast(in)
		}
		data.Health = &health
	case coach.IntentResources:
		if res, err := s.ListResources(ctx, ""); err == nil {
			data.Resources = res
		}
	}
	return data
}

// ErrResourcesUnavailable is returned when no resource directory is configured.
var ErrResourcesUnavailable = errors.New("resource directory not configured")

// ListResources returns community resources, optionally filtered by category.
func (s *Service) ListResources(ctx context.Context, category string) ([]models.CommunityResource, error) {
	if s.resources == nil {
		return nil, ErrResourcesUnavailable
	}
	return s.resources.List(ctx, category)
}
