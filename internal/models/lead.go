// internal/models/lead.go
package models

import (
	"strings"
	"time"
)

// RelevanceTag is the categorical summary of a lead's score.
type RelevanceTag string

const (
	TagNotRelevant      RelevanceTag = "Not relevant"
	TagWeakLead         RelevanceTag = "Weak lead"
	TagHotLead          RelevanceTag = "Hot lead"
	TagVeryBigPotential RelevanceTag = "Very big potential customer"
)

// AllTags lists the tags from least to most valuable.
func AllTags() []RelevanceTag {
	return []RelevanceTag{TagNotRelevant, TagWeakLead, TagHotLead, TagVeryBigPotential}
}

func (t RelevanceTag) Valid() bool {
	switch t {
	case TagNotRelevant, TagWeakLead, TagHotLead, TagVeryBigPotential:
		return true
	}
	return false
}

// IsHot reports whether the tag qualifies for a demo offer.
func (t RelevanceTag) IsHot() bool {
	return t == TagHotLead || t == TagVeryBigPotential
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat entry. Entries are never edited after append.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState tracks which qualification questions have been asked.
// Flags only ever move from false to true.
type ConversationState struct {
	HasAskedEmail         bool `json:"hasAskedEmail"`
	HasAskedCompany       bool `json:"hasAskedCompany"`
	HasAskedBudget        bool `json:"hasAskedBudget"`
	HasAskedTeamSize      bool `json:"hasAskedTeamSize"`
	HasAskedTimeline      bool `json:"hasAskedTimeline"`
	HasFinishedQualifying bool `json:"hasFinishedQualifying"`
	HasOfferedCalendly    bool `json:"hasOfferedCalendly"`
}

// Union returns a state with every flag that is set in either s or other.
func (s ConversationState) Union(other ConversationState) ConversationState {
	return ConversationState{
		HasAskedEmail:         s.HasAskedEmail || other.HasAskedEmail,
		HasAskedCompany:       s.HasAskedCompany || other.HasAskedCompany,
		HasAskedBudget:        s.HasAskedBudget || other.HasAskedBudget,
		HasAskedTeamSize:      s.HasAskedTeamSize || other.HasAskedTeamSize,
		HasAskedTimeline:      s.HasAskedTimeline || other.HasAskedTimeline,
		HasFinishedQualifying: s.HasFinishedQualifying || other.HasFinishedQualifying,
		HasOfferedCalendly:    s.HasOfferedCalendly || other.HasOfferedCalendly,
	}
}

// Covers reports whether every flag set in prev is also set in s.
func (s ConversationState) Covers(prev ConversationState) bool {
	return s.Union(prev) == s
}

// Stage names the pending qualification question.
type Stage string

const (
	StageEmail    Stage = "email"
	StageCompany  Stage = "company"
	StageBudget   Stage = "budget"
	StageTeamSize Stage = "team_size"
	StageTimeline Stage = "timeline"
	StageClosing  Stage = "closing"
	StageFinished Stage = "finished"
)

// Stages lists the stages in dialogue order.
func Stages() []Stage {
	return []Stage{StageEmail, StageCompany, StageBudget, StageTeamSize, StageTimeline, StageClosing, StageFinished}
}

// Pending returns the first question not yet asked, in dialogue order.
func (s ConversationState) Pending() Stage {
	switch {
	case !s.HasAskedEmail:
		return StageEmail
	case !s.HasAskedCompany:
		return StageCompany
	case !s.HasAskedBudget:
		return StageBudget
	case !s.HasAskedTeamSize:
		return StageTeamSize
	case !s.HasAskedTimeline:
		return StageTimeline
	case !s.HasFinishedQualifying:
		return StageClosing
	default:
		return StageFinished
	}
}

// Lead is a prospective customer, keyed by email.
type Lead struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	CompanyName       string            `json:"companyName,omitempty"`
	Score             int               `json:"score"`
	RelevanceTag      RelevanceTag      `json:"relevanceTag"`
	ChatHistory       []Message         `json:"chatHistory"`
	ConversationState ConversationState `json:"conversationState"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// NewLead returns an unqualified lead: score 0, weak tag, nothing asked yet.
func NewLead(id, email string, now time.Time) *Lead {
	return &Lead{
		ID:           id,
		Email:        NormalizeEmail(email),
		Score:        0,
		RelevanceTag: TagWeakLead,
		ChatHistory:  []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an email so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Lead) AppendMessage(role Role, content string, at time.Time) {
	l.ChatHistory = append(l.ChatHistory, Message{Role: role, Content: content, Timestamp: at})
}

// Clone returns a deep copy so callers can mutate without aliasing history.
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	out := *l
	out.ChatHistory = make([]Message, len(l.ChatHistory))
	copy(out.ChatHistory, l.ChatHistory)
	return &out
}

// LeadSummary is the list view of a lead.
type LeadSummary struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	CompanyName  string       `json:"companyName,omitempty"`
	Score        int          `json:"score"`
	RelevanceTag RelevanceTag `json:"relevanceTag"`
	Stage        Stage        `json:"stage"`
	MessageCount int          `json:"messageCount"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (l *Lead) Summary() LeadSummary {
	return LeadSummary{
		ID:           l.ID,
		Email:        l.Email,
		CompanyName:  l.CompanyName,
		Score:        l.Score,
		RelevanceTag: l.RelevanceTag,
		Stage:        l.ConversationState.Pending(),
		MessageCount: len(l.ChatHistory),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}
