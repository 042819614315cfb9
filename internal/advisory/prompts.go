package advisory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

const (
	FallbackRisk              = client.RiskMedium
	FallbackRecommendation    = "AI analysis unavailable. Please proceed with caution."
	MissingRecommendation     = "Could not generate a recommendation."
	FallbackChatReply         = "Sorry, I encountered an error processing your request."
	fallbackPredictionPercent = 50
)

var FallbackPrediction = Prediction{Label: PredictionModerate, Percentage: fallbackPredictionPercent}

const chatInstruction = `You are an assistant for loan officers of a microfinance institution in Pakistan.
Help with questions about client onboarding, loan terms, repayment schedules, overdue follow-up and portfolio health.
Amounts are in PKR. Keep answers short and practical, and say so when a question needs data you do not have.`

var riskSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"riskScore": map[string]any{
			"type": "STRING",
			"enum": []string{string(client.RiskLow), string(client.RiskMedium), string(client.RiskHigh)},
		},
	},
}

var recommendationSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"recommendation": map[string]any{"type": "STRING"},
	},
}

var predictionSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"predictionLabel": map[string]any{
			"type": "STRING",
			"enum": []string{string(PredictionLow), string(PredictionModerate), string(PredictionHigh)},
		},
		"predictionPercentage": map[string]any{
			"type":        "INTEGER",
			"description": "A number between 0 and 100.",
		},
	},
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not Provided"
	}

	return s
}

func riskPrompt(p client.Profile) string {
	income, household := "", ""
	if p.Income != nil && p.Income.IsPositive() {
		income = p.Income.String()
	}

	if p.HouseholdSize != nil {
		household = fmt.Sprint(*p.HouseholdSize)
	}

	return fmt.Sprintf(`Analyze the risk profile for a new microfinance client in Pakistan based on the following information.
- Name: %s
- CNIC: %s
- Phone: %s
- Address: %s
- Monthly Income (PKR): %s
- Occupation: %s
- Household Size: %s

Based on this information, provide a risk score. Higher income, stable occupations (e.g., Shop Owner vs. Laborer), and smaller household sizes generally indicate lower risk.
The output must be a JSON object with a single key "riskScore" and one of three string values: "Low", "Medium", or "High".`,
		p.Name, p.CNIC, p.Phone, p.Address,
		orNotProvided(income), orNotProvided(p.Occupation), orNotProvided(household))
}

func recommendationPrompt(risk client.RiskScore, amount decimal.Decimal, durationMonths int) string {
	return fmt.Sprintf(`A microfinance client with a %q risk score is applying for a loan of PKR %s for %d months.
Provide a brief, one-sentence recommendation for the loan officer.
- If 'Low' risk, be encouraging.
- If 'Medium' risk, suggest cautious approval, maybe with slightly stricter terms or collateral.
- If 'High' risk, strongly advise against the current terms and suggest a significantly smaller loan amount or shorter duration.

The output must be a JSON object with a single key "recommendation".`,
		string(risk), amount.String(), durationMonths)
}

func predictionPrompt(c *client.Client, l *loan.Loan) string {
	counts := l.Counts()
	income := "N/A"

	if c.Income != nil && c.Income.IsPositive() {
		income = c.Income.String()
	}

	return fmt.Sprintf(`Analyze the default risk for a microfinance loan based on the following data.
Client Information:
- Base Risk Score: %s
- Monthly Income: PKR %s

Loan Information:
- Amount: PKR %s
- Duration: %d months
- Type: %s

Repayment History:
- Total installments: %d. Paid: %d, Partially Paid: %d, Overdue: %d, Pending: %d.

Based on this data, predict the likelihood of the client defaulting on this loan.
A high base risk score, a high loan amount, and any overdue or partially paid payments should significantly increase the default risk.
The output must be a JSON object with two keys:
1. "predictionLabel": A string value, either "Low", "Moderate", or "High".
2. "predictionPercentage": An integer representing the percentage chance of default (e.g., 15 for 15%%).`,
		c.RiskScore, income,
		l.Amount.String(), l.DurationMonths, l.Type,
		len(l.Schedule),
		counts[loan.InstallmentPaid], counts[loan.InstallmentPartiallyPaid],
		counts[loan.InstallmentOverdue], counts[loan.InstallmentPending])
}
