package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasis-app/oasis-service/internal/integrations/llm"
	"github.com/oasis-app/oasis-service/internal/models"
)

type fakeCompleter struct {
	got   []llm.Message
	reply string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.got = messages
	return f.reply, f.err
}

func TestClassify(t *testing.T) {
	tests := map[string]Intent{
		"Am I eligible for SNAP?":              IntentBenefits,
		"how do I check my EBT balance":        IntentBenefits,
		"I can't pay rent this month":          IntentBudget,
		"help me make a budget":                IntentBudget,
		"where is the closest food bank":       IntentResources,
		"is there a shelter open tonight":      IntentResources,
		"hello!":                               IntentGeneral,
		"":                                     IntentGeneral,
		"Can WIC help? I'm also short on rent": IntentBenefits,
	}
	for msg, want := range tests {
		assert.Equal(t, want, Classify(msg), msg)
	}
}

func TestReplyBuildsPromptFromContext(t *testing.T) {
	fc := &fakeCompleter{reply: "You likely qualify for SNAP."}
	logger, _ := test.NewNullLogger()
	c := New(fc, logger)

	history := []llm.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	data := Context{
		Household:   &models.HouseholdProfile{HouseholdSize: 4, MonthlyIncome: 2000},
		Eligibility: &models.EligibilityResult{SNAP: models.ProgramEstimate{Eligible: true, Amount: 432}, TotalMonthly: 432},
	}

	intent, reply, err := c.Reply(context.Background(), "Do I qualify for snap?", history, data)
	require.NoError(t, err)
	assert.Equal(t, IntentBenefits, intent)
	assert.Equal(t, "You likely qualify for SNAP.", reply)

	require.Len(t, fc.got, 4)
	assert.Equal(t, "system", fc.got[0].Role)
	assert.Contains(t, fc.got[0].Content, "Household: 4 people")
	assert.Contains(t, fc.got[0].Content, "SNAP: likely eligible, about $432.00/month")
	assert.Contains(t, fc.got[0].Content, "WIC: likely not eligible")
	assert.Equal(t, history, fc.got[1:3])
	assert.Equal(t, llm.Message{Role: "user", Content: "Do I qualify for snap?"}, fc.got[3])
}

func TestReplyBudgetAndResourcePrompts(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	logger, _ := test.NewNullLogger()
	c := New(fc, logger)

	date := "2024-04-16"
	days := 6
	_, _, err := c.Reply(context.Background(), "I'm broke", nil, Context{
		Health: &models.FinancialHealthSummary{Score: 30, CrisisDate: &date, DaysUntilCrisis: &days, Recommendations: []string{"Visit a food bank."}},
	})
	require.NoError(t, err)
	assert.Contains(t, fc.got[0].Content, "score: 30/100")
	assert.Contains(t, fc.got[0].Content, "hit zero on 2024-04-16")
	assert.Contains(t, fc.got[0].Content, "- Visit a food bank.")

	_, _, err = c.Reply(context.Background(), "any pantry near me?", nil, Context{
		Resources: []models.CommunityResource{{Name: "Eastside Food Bank", Category: "food", Address: "12 Main St", Phone: "555-0100"}},
	})
	require.NoError(t, err)
	assert.Contains(t, fc.got[0].Content, "- Eastside Food Bank (food), 12 Main St, 555-0100")

	_, _, err = c.Reply(context.Background(), "pantry?", nil, Context{})
	require.NoError(t, err)
	assert.Contains(t, fc.got[0].Content, "211")
}

func TestReplyOffline(t *testing.T) {
	logger, _ := test.NewNullLogger()

	intent, reply, err := New(nil, logger).Reply(context.Background(), "budget help", nil, Context{})
	require.NoError(t, err)
	assert.Equal(t, IntentBudget, intent)
	assert.Contains(t, reply, "cash-flow forecast")

	fc := &fakeCompleter{err: llm.ErrNotConfigured}
	intent, reply, err = New(fc, logger).Reply(context.Background(), "hi", nil, Context{})
	require.NoError(t, err)
	assert.Equal(t, IntentGeneral, intent)
	assert.Equal(t, generalRoute.offline, reply)
}

func TestReplyError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fc := &fakeCompleter{err: errors.New("timeout")}

	intent, _, err := New(fc, logger).Reply(context.Background(), "snap", nil, Context{})
	assert.Equal(t, IntentBenefits, intent)
	assert.ErrorContains(t, err, "timeout")
}
