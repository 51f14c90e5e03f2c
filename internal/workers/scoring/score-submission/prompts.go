// internal/workers/scoring/score-submission/prompts.go
package scoresubmission

import (
	"encoding/json"
	"fmt"
	"strings"

	"pitch-scorer/internal/models"
)

const noDeckProvided = "No pitch deck provided."

const systemPromptTemplate = `You are a venture capital investment scoring assistant.

You MUST output JSON in the EXACT format shown below.
Do NOT change field names.
Do NOT add or remove fields.

SCORING RULES:
- Score market, financials, team and product from 0 to 5 (integers)
- For each category give a 1-2 sentence reasoning and the evidence (quotes or facts from the submission or deck) behind it
- overall_score = sum of the four category scores
- pass = true if overall_score >= %d
- confidence must be between 0 and 1
- recommended_next_step must be one of: "no", "follow-up", "diligence"
- Be conservative if information is missing

OUTPUT FORMAT EXAMPLE (THIS IS A TEMPLATE):

{
  "overall_score": 14,
  "category_scores": {
    "market":     {"score": 4, "reasoning": "Large, growing market.", "evidence": ["TAM of $4B cited on slide 3"]},
    "financials": {"score": 3, "reasoning": "Early revenue.", "evidence": ["$20k MRR"]},
    "team":       {"score": 4, "reasoning": "Relevant operator experience.", "evidence": ["Founders ex-Amazon robotics"]},
    "product":    {"score": 3, "reasoning": "Pilots but no scale yet.", "evidence": ["3 paid pilots"]}
  },
  "confidence": 0.78,
  "summary": "Brief explanation of strengths and weaknesses.",
  "key_risks": ["Risk one", "Risk two"],
  "recommended_next_step": "follow-up",
  "pass": true
}

ONLY OUTPUT JSON.
NO ADDITIONAL TEXT.`

func systemPrompt(threshold int) string {
	return fmt.Sprintf(systemPromptTemplate, threshold)
}

func buildScoringPrompt(intake models.Intake, deckSummary *string) string {
	submission, _ := json.MarshalIndent(intake, "", "  ")

	var sb strings.Builder
	sb.WriteString("Startup submission:\n")
	sb.Write(submission)
	sb.WriteString("\n\nPitch deck summary:\n")
	if deckSummary != nil && strings.TrimSpace(*deckSummary) != "" {
		sb.WriteString(strings.TrimSpace(*deckSummary))
	} else {
		sb.WriteString(noDeckProvided)
	}
	sb.WriteString("\n")
	return sb.String()
}

func buildRepairPrompt(previous string, problems []string, threshold int) string {
	var sb strings.Builder
	sb.WriteString("The previous output did not match the required JSON schema.\n\n")
	if len(problems) > 0 {
		sb.WriteString("Problems found:\n")
		for _, p := range problems {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Here is the REQUIRED JSON SCHEMA:\n")
	sb.WriteString(scoreSchemaJSON)
	sb.WriteString("\n\nHere is your previous output:\n")
	sb.WriteString(previous)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "overall_score must equal the sum of the four category scores and pass must be true only when overall_score >= %d.\n", threshold)
	sb.WriteString("Rewrite the output to EXACTLY match the required schema.\nONLY OUTPUT JSON.\n")
	return sb.String()
}
