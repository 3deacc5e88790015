// internal/qualification/scoring.go
package qualification

import (
	"strings"

	"lead-qualifier/internal/models"
)

// ScoreFromBudget maps a parsed budget to a score delta.
func (p *Policy) ScoreFromBudget(amount int) int {
	for _, b := range p.BudgetBands {
		if b.Below == nil || amount < *b.Below {
			return b.Delta
		}
	}
	return 0
}

// ScoreFromTeamSize maps a team head count to a score delta.
func (p *Policy) ScoreFromTeamSize(n int) int {
	for _, b := range p.TeamSizeBands {
		if n >= b.AtLeast {
			return b.Delta
		}
	}
	return 0
}

// KeywordHit is one keyword found in a message.
type KeywordHit struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
	Weight   int    `json:"weight"`
}

// KeywordHits lists every keyword of every category present in text.
// Categories are independent, so one message can hit several of them.
func (p *Policy) KeywordHits(text string) []KeywordHit {
	lower := strings.ToLower(text)
	var hits []KeywordHit
	for _, c := range p.KeywordCategories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, KeywordHit{Category: c.Name, Keyword: kw, Weight: c.Weight})
			}
		}
	}
	return hits
}

// ScoreFromKeywords sums the weights of all keyword hits.
func (p *Policy) ScoreFromKeywords(text string) int {
	total := 0
	for _, h := range p.KeywordHits(text) {
		total += h.Weight
	}
	return total
}

// Clamp bounds a deterministic-path score.
func (p *Policy) Clamp(score int) int {
	if score < p.Bounds.Min {
		return p.Bounds.Min
	}
	if score > p.Bounds.Max {
		return p.Bounds.Max
	}
	return score
}

// TagFromScore derives the tag used by the rule engine. A score of exactly
// not_relevant_max is still "Not relevant".
func (p *Policy) TagFromScore(score int) models.RelevanceTag {
	switch {
	case score <= p.Tags.NotRelevantMax:
		return models.TagNotRelevant
	case score < p.Tags.WeakBelow:
		return models.TagWeakLead
	case score < p.Tags.HotBelow:
		return models.TagHotLead
	default:
		return models.TagVeryBigPotential
	}
}

// ModelTagFromScore is the banding the model is instructed to use. Its
// domain is unclamped and only negative scores are "Not relevant".
func (p *Policy) ModelTagFromScore(score int) models.RelevanceTag {
	if score < p.Tags.NotRelevantMax {
		return models.TagNotRelevant
	}
	if score == p.Tags.NotRelevantMax {
		return models.TagWeakLead
	}
	return p.TagFromScore(score)
}
