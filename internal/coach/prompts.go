package coach

import (
	"fmt"
	"strings"

	"github.com/oasis-app/oasis-service/internal/models"
)

const basePrompt = "You are Oasis, a warm and practical financial coach for families on tight budgets. " +
	"Use plain language, short paragraphs and concrete next steps. Never shame the user."

func benefitsPrompt(data Context) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(" Focus on public benefits (SNAP, WIC, TANF, EITC, LIHEAP) and how to apply.")
	if h := data.Household; h != nil {
		fmt.Fprintf(&b, "\nHousehold: %d people, %d children, monthly income $%.0f", h.HouseholdSize, h.Children, h.MonthlyIncome)
		if h.Pregnant {
			b.WriteString(", someone is pregnant")
		}
		b.WriteString(".")
	}
	if e := data.Eligibility; e != nil {
		b.WriteString("\nEstimated eligibility:")
		for _, p := range []struct {
			name string
			est  models.ProgramEstimate
		}{
			{"SNAP", e.SNAP}, {"WIC", e.WIC}, {"TANF", e.TANF}, {"EITC", e.EITC}, {"LIHEAP", e.LIHEAP},
		} {
			if p.est.Eligible {
				fmt.Fprintf(&b, "\n- %s: likely eligible, about $%.2f/month", p.name, p.est.Amount)
			} else {
				fmt.Fprintf(&b, "\n- %s: likely not eligible", p.name)
			}
		}
		fmt.Fprintf(&b, "\nTotal estimate: $%.2f/month. These are estimates, not decisions.", e.TotalMonthly)
	}
	return b.String()
}

func budgetPrompt(data Context) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(" Focus on stretching money until the next paycheck or benefit deposit.")
	if h := data.Health; h != nil {
		fmt.Fprintf(&b, "\nFinancial health score: %d/100.", h.Score)
		if h.CrisisDate != nil {
			fmt.Fprintf(&b, " Balance is projected to hit zero on %s.", *h.CrisisDate)
		} else {
			b.WriteString(" No shortfall is projected this month.")
		}
		for _, r := range h.Recommendations {
			fmt.Fprintf(&b, "\n- %s", r)
		}
	}
	return b.String()
}

func resourcesPrompt(data Context) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(" Help the user find community resources such as food banks, shelters and clinics.")
	if len(data.Resources) > 0 {
		b.WriteString("\nKnown resources:")
		for _, r := range data.Resources {
			fmt.Fprintf(&b, "\n- %s (%s), %s", r.Name, r.Category, r.Address)
			if r.Phone != "" {
				fmt.Fprintf(&b, ", %s", r.Phone)
			}
		}
	} else {
		b.WriteString("\nNo local directory is available; suggest calling 211.")
	}
	return b.String()
}

func generalPrompt(Context) string {
	return basePrompt
}
