// internal/qualification/scoring_test.go
package qualification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lead-qualifier/internal/models"
)

func TestPolicy_ScoreFromBudget(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		amount   int
		expected int
	}{
		{0, -10},
		{1999, -10},
		{2000, 5},
		{9999, 5},
		{10000, 15},
		{49999, 15},
		{50000, 30},
		{5000000, 30},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.ScoreFromBudget(tt.amount), "amount %d", tt.amount)
	}
}

func TestPolicy_ScoreFromTeamSize(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		size     int
		expected int
	}{
		{1000, 30},
		{500, 30},
		{499, 15},
		{50, 15},
		{49, 5},
		{10, 5},
		{9, 0},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.ScoreFromTeamSize(tt.size), "size %d", tt.size)
	}
}

func TestPolicy_ScoreFromKeywords(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"no keywords", "thanks, that's all", 0},
		{"single weak", "we are a startup", 10},
		{"hot and very big", "Enterprise team, scaling fast", 70},
		{"categories are independent", "startup scaling", 40},
		{"not relevant dominates", "I'm a student with a hobby", -100},
		{"case insensitive", "FORTUNE 500 client", 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ScoreFromKeywords(tt.text))
		})
	}
}

func TestPolicy_KeywordHits(t *testing.T) {
	p := DefaultPolicy()

	hits := p.KeywordHits("urgent enterprise rollout")
	assert.ElementsMatch(t, []KeywordHit{
		{Category: "hot_lead", Keyword: "urgent", Weight: 30},
		{Category: "very_big_potential", Keyword: "enterprise", Weight: 40},
	}, hits)
}

func TestPolicy_Clamp(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 0, p.Clamp(-40))
	assert.Equal(t, 55, p.Clamp(55))
	assert.Equal(t, 100, p.Clamp(170))
}

// ==========================
// Tag derivation
// ==========================

func TestPolicy_TagFromScore_Boundaries(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		score    int
		expected models.RelevanceTag
	}{
		{-20, models.TagNotRelevant},
		{0, models.TagNotRelevant},
		{1, models.TagWeakLead},
		{29, models.TagWeakLead},
		{30, models.TagHotLead},
		{69, models.TagHotLead},
		{70, models.TagVeryBigPotential},
		{100, models.TagVeryBigPotential},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.TagFromScore(tt.score), "score %d", tt.score)
	}
}

func TestPolicy_ModelTagFromScore(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, models.TagNotRelevant, p.ModelTagFromScore(-1))
	assert.Equal(t, models.TagWeakLead, p.ModelTagFromScore(0))
	assert.Equal(t, models.TagHotLead, p.ModelTagFromScore(30))
	assert.Equal(t, models.TagVeryBigPotential, p.ModelTagFromScore(250))
}

func TestPolicy_TagFromScore_Monotonic(t *testing.T) {
	p := DefaultPolicy()

	rank := map[models.RelevanceTag]int{}
	for i, tag := range models.AllTags() {
		rank[tag] = i
	}

	prev := -1
	for s := -200; s <= 200; s++ {
		tag := p.TagFromScore(s)
		assert.True(t, tag.Valid(), "score %d produced %q", s, tag)
		assert.GreaterOrEqual(t, rank[tag], prev, "score %d", s)
		prev = rank[tag]
	}
}
