// Package coach routes user messages to intent-specific prompt builders and
// asks a chat model for the reply.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/integrations/llm"
	"github.com/oasis-app/oasis-service/internal/models"
)

// Intent is the topic a message was routed to.
type Intent string

// Known intents
const (
	IntentBenefits  Intent = "benefits"
	IntentBudget    Intent = "budget"
	IntentResources Intent = "resources"
	IntentGeneral   Intent = "general"
)

// Completer produces a chat completion.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Context is the user data a handler may weave into its prompt. Any field
// may be nil or empty.
type Context struct {
	Household   *models.HouseholdProfile
	Eligibility *models.EligibilityResult
	Health      *models.FinancialHealthSummary
	Resources   []models.CommunityResource
}

type handler struct {
	intent   Intent
	keywords []string
	prompt   func(Context) string
	offline  string
}

// Routes are checked in order; the first keyword hit wins.
var routes = []handler{
	{
		intent:   IntentBenefits,
		keywords: []string{"snap", "ebt", "wic", "tanf", "eitc", "liheap", "benefit", "eligib", "food stamp", "apply"},
		prompt:   benefitsPrompt,
		offline:  "I can't reach the coach right now. Open the Benefits tab to see which programs your household may qualify for.",
	},
	{
		intent:   IntentBudget,
		keywords: []string{"budget", "spend", "money", "bill", "rent", "save", "saving", "paycheck", "broke", "afford"},
		prompt:   budgetPrompt,
		offline:  "I can't reach the coach right now. Your cash-flow forecast shows when money may run short and what can help.",
	},
	{
		intent:   IntentResources,
		keywords: []string{"food bank", "pantry", "shelter", "clinic", "resource", "near me", "meal"},
		prompt:   resourcesPrompt,
		offline:  "I can't reach the coach right now. The Resources tab lists food banks and services near you.",
	},
}

var generalRoute = handler{
	intent:  IntentGeneral,
	prompt:  generalPrompt,
	offline: "I can't reach the coach right now. Please try again in a little while.",
}

func route(message string) handler {
	text := strings.ToLower(message)
	for _, r := range routes {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r
			}
		}
	}
	return generalRoute
}

// Classify returns the intent a message would be routed to.
func Classify(message string) Intent {
	return route(message).intent
}

// Coach answers user messages.
type Coach struct {
	completer Completer
	log       *logrus.Logger
}

// New creates a coach. completer may be nil, in which case every reply is
// the offline message for the intent.
func New(completer Completer, log *logrus.Logger) *Coach {
	return &Coach{completer: completer, log: log}
}

// Reply routes message and returns the intent and the assistant's answer.
// history holds earlier turns, oldest first.
func (c *Coach) Reply(ctx context.Context, message string, history []llm.Message, data Context) (Intent, string, error) {
	h := route(message)

	if c.completer == nil {
		return h.intent, h.offline, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: h.prompt(data)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	reply, err := c.completer.Complete(ctx, messages)
	if errors.Is(err, llm.ErrNotConfigured) {
		return h.intent, h.offline, nil
	}
	if err != nil {
		return h.intent, "", fmt.Errorf("failed to get %s reply: %w", h.intent, err)
	}
	c.log.Debugf("Coach answered %s message (%d history turns)", h.intent, len(history))
	return h.intent, reply, nil
}
