// internal/qualification/llm/prompt.go
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"
)

const responseShape = "```json\n" + `{
  "updatedLead": {"email": "", "companyName": "", "score": 0, "relevanceTag": "Weak lead"},
  "updatedState": {
    "hasAskedEmail": false,
    "hasAskedCompany": false,
    "hasAskedBudget": false,
    "hasAskedTeamSize": false,
    "hasAskedTimeline": false,
    "hasFinishedQualifying": false,
    "hasOfferedCalendly": false
  },
  "response": "your reply to the lead"
}` + "\n```"

// BuildPrompt renders the whole qualification contract for one turn: the
// conversation, the current facts and state, and the policy the rule engine
// would apply.
func BuildPrompt(req qualification.Request, policy *qualification.Policy) string {
	var parts []string

	parts = append(parts, "You are a friendly sales assistant for a software development agency. You qualify inbound leads through a short conversation.")

	parts = append(parts, "\nConversation so far:")
	if len(req.Lead.ChatHistory) == 0 {
		parts = append(parts, "(no messages yet)")
	}
	for _, m := range req.Lead.ChatHistory {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(string(m.Role)), m.Content))
	}

	parts = append(parts, fmt.Sprintf("\nLatest message: %s", req.Message))

	leadJSON, _ := json.MarshalIndent(qualification.FactsOf(req.Lead), "", "  ")
	parts = append(parts, "\nCurrent lead:")
	parts = append(parts, string(leadJSON))

	stateJSON, _ := json.MarshalIndent(req.Lead.ConversationState, "", "  ")
	parts = append(parts, "\nCurrent conversation state:")
	parts = append(parts, string(stateJSON))

	parts = append(parts, "\nScoring rules (add every matching delta to the current score):")
	parts = append(parts, scoringRules(policy)...)

	parts = append(parts, "\nDialogue rules (handle only the first question not yet asked):")
	parts = append(parts,
		"1. If hasAskedEmail is false, ask for the email address. If the message already contains an email and a company, record both and ask about budget.",
		"2. If the email is still unknown, ask for it again.",
		"3. If the company is unknown and was asked, take the message as the company name and ask about budget.",
		"4. If budget was not asked, ask for the approximate budget.",
		"5. If team size was not asked, score the budget answer and ask how many people are on the development team.",
		"6. If timeline was not asked, score the team size and ask about the project timeline.",
		"7. If qualifying is not finished, score the timeline and ask if there is anything else to know.",
		"8. Otherwise score keywords in the message and answer according to the tag.",
	)
	parts = append(parts, fmt.Sprintf("- Offer the demo booking link %s exactly once, only when the tag is %q or %q and hasOfferedCalendly is false. Then set hasOfferedCalendly to true.",
		policy.CalendlyLink, models.TagHotLead, models.TagVeryBigPotential))
	parts = append(parts, "- Never change a state flag from true to false.")
	parts = append(parts, "- The relevanceTag must follow the tag bands above.")

	parts = append(parts, "\nAnswer ONLY with one fenced JSON block of exactly this shape:")
	parts = append(parts, responseShape)

	return strings.Join(parts, "\n")
}

func scoringRules(p *qualification.Policy) []string {
	var lines []string

	for _, c := range p.KeywordCategories {
		lines = append(lines, fmt.Sprintf("- %s keywords (%+d each): %s", c.Name, c.Weight, strings.Join(c.Keywords, ", ")))
	}

	var bands []string
	for _, b := range p.BudgetBands {
		if b.Below == nil {
			bands = append(bands, fmt.Sprintf("otherwise %+d", b.Delta))
			continue
		}
		bands = append(bands, fmt.Sprintf("below %d: %+d", *b.Below, b.Delta))
	}
	lines = append(lines, fmt.Sprintf("- Budget: %s; no budget (%s): %+d",
		strings.Join(bands, "; "), strings.Join(p.NoBudgetPhrases, ", "), p.NoBudgetDelta))

	var teams []string
	for _, b := range p.TeamSizeBands {
		teams = append(teams, fmt.Sprintf("%d or more: %+d", b.AtLeast, b.Delta))
	}
	lines = append(lines, fmt.Sprintf("- Team size: %s; smaller: +0", strings.Join(teams, "; ")))

	var timeline []string
	for _, b := range p.TimelineBuckets {
		timeline = append(timeline, fmt.Sprintf("%s: %+d", b.Pattern, b.Delta))
	}
	lines = append(lines, fmt.Sprintf("- Timeline: %s", strings.Join(timeline, "; ")))

	lines = append(lines, fmt.Sprintf("- Tags: score below %d is %q; below %d is %q; below %d is %q; otherwise %q",
		p.Tags.NotRelevantMax, models.TagNotRelevant,
		p.Tags.WeakBelow, models.TagWeakLead,
		p.Tags.HotBelow, models.TagHotLead,
		models.TagVeryBigPotential))

	return lines
}
