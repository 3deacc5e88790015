// internal/qualification/engine.go
package qualification

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"lead-qualifier/internal/models"
)

// Gate identifies which branch of the dialogue handled a turn.
type Gate string

const (
	GateAskEmail       Gate = "ask_email"
	GateRetryEmail     Gate = "retry_email"
	GateCaptureCompany Gate = "capture_company"
	GateAskBudget      Gate = "ask_budget"
	GateScoreBudget    Gate = "score_budget"
	GateScoreTeamSize  Gate = "score_team_size"
	GateScoreTimeline  Gate = "score_timeline"
	GateClosing        Gate = "closing"
	GateFallback       Gate = "fallback"
	GateModel          Gate = "model"
)

const (
	SourceRules = "rules"
	SourceModel = "model"
)

// Facts are the lead fields a qualification turn may change.
type Facts struct {
	Email        string              `json:"email"`
	CompanyName  string              `json:"companyName"`
	Score        int                 `json:"score"`
	RelevanceTag models.RelevanceTag `json:"relevanceTag"`
}

func FactsOf(l *models.Lead) Facts {
	return Facts{
		Email:        l.Email,
		CompanyName:  l.CompanyName,
		Score:        l.Score,
		RelevanceTag: l.RelevanceTag,
	}
}

// Turn is the outcome of one qualification step.
type Turn struct {
	Reply  string                   `json:"response"`
	Lead   Facts                    `json:"updatedLead"`
	State  models.ConversationState `json:"updatedState"`
	Gate   Gate                     `json:"-"`
	Source string                   `json:"-"`
}

// Engine is the rule-based dialogue driver. It holds no per-lead state.
type Engine struct {
	policy *Policy
}

func NewEngine(policy *Policy) *Engine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Engine{policy: policy}
}

func (e *Engine) Policy() *Policy { return e.policy }

// Qualify implements Qualifier. The rule engine never fails.
func (e *Engine) Qualify(_ context.Context, req Request) (*Turn, error) {
	if req.Lead == nil {
		return nil, fmt.Errorf("qualify: lead is required")
	}
	t := e.Advance(req.Message, FactsOf(req.Lead), req.Lead.ConversationState)
	return &t, nil
}

// Advance runs exactly one gate: the first one whose precondition holds.
// The returned state is a copy; the inputs are never modified.
func (e *Engine) Advance(message string, lead Facts, state models.ConversationState) Turn {
	t := Turn{Lead: lead, State: state, Source: SourceRules}

	switch {
	case !state.HasAskedEmail:
		e.askEmail(message, &t)
	case lead.Email == "":
		e.retryEmail(message, &t)
	case lead.CompanyName == "" && state.HasAskedCompany:
		e.captureCompany(message, &t)
	case !state.HasAskedBudget:
		t.Gate = GateAskBudget
		t.State.HasAskedBudget = true
		t.Reply = replyAskBudget
	case !state.HasAskedTeamSize:
		e.scoreBudget(message, &t)
	case !state.HasAskedTimeline:
		e.scoreTeamSize(message, &t)
	case !state.HasFinishedQualifying:
		e.scoreTimeline(message, &t)
	case state.HasFinishedQualifying:
		e.closing(message, &t)
	default:
		t.Gate = GateFallback
		t.Reply = replyGeneric
	}
	return t
}

func (e *Engine) askEmail(message string, t *Turn) {
	t.Gate = GateAskEmail
	t.State.HasAskedEmail = true

	if t.Lead.Email == "" {
		if email, ok := ExtractEmail(message); ok {
			t.Lead.Email = email
		}
	}
	if t.Lead.CompanyName == "" && !t.State.HasAskedCompany {
		if company, ok := ExtractCompany(message); ok {
			t.Lead.CompanyName = company
		}
	}

	switch {
	case t.Lead.Email == "":
		t.Reply = replyAskEmail
	case t.Lead.CompanyName == "":
		t.State.HasAskedCompany = true
		t.Reply = fmt.Sprintf(replyEmailAskCompany, t.Lead.Email)
	default:
		t.State.HasAskedCompany = true
		t.State.HasAskedBudget = true
		t.Reply = fmt.Sprintf(replyEmailAndCompany, t.Lead.CompanyName)
	}
}

func (e *Engine) retryEmail(message string, t *Turn) {
	t.Gate = GateRetryEmail

	email, ok := ExtractEmail(message)
	if !ok {
		t.Reply = replyEmailNotCaught
		return
	}
	t.Lead.Email = email

	if t.Lead.CompanyName == "" && !t.State.HasAskedCompany {
		if company, ok := ExtractCompany(message); ok {
			t.Lead.CompanyName = company
		}
	}

	t.State.HasAskedCompany = true
	if t.Lead.CompanyName != "" {
		t.State.HasAskedBudget = true
		t.Reply = fmt.Sprintf(replyCompanyAskBudget, t.Lead.CompanyName)
		return
	}
	t.Reply = replyAskCompanyShort
}

func (e *Engine) captureCompany(message string, t *Turn) {
	t.Gate = GateCaptureCompany

	name := strings.TrimSpace(message)
	if n := utf8.RuneCountInString(name); n <= 1 || n >= 100 {
		t.Reply = replyAskCompanyAgain
		return
	}
	t.Lead.CompanyName = name
	t.State.HasAskedBudget = true
	t.Reply = fmt.Sprintf(replyCompanyAskBudget, name)
}

func (e *Engine) scoreBudget(message string, t *Turn) {
	t.Gate = GateScoreBudget

	amount, status := e.policy.ParseBudget(message)
	switch status {
	case BudgetNone:
		e.rescore(t, e.policy.NoBudgetDelta)
		t.State.HasAskedTeamSize = true
		t.Reply = replyNoBudgetTeamSize
	case BudgetAmount:
		e.rescore(t, e.policy.ScoreFromBudget(amount))
		t.State.HasAskedTeamSize = true
		t.Reply = replyBudgetTeamSize
	default:
		t.Reply = replyClarifyBudget
	}
}

func (e *Engine) scoreTeamSize(message string, t *Turn) {
	t.Gate = GateScoreTeamSize

	delta := 0
	if n, ok := ParseTeamSize(message); ok {
		delta = e.policy.ScoreFromTeamSize(n)
	}
	e.rescore(t, delta)
	t.State.HasAskedTimeline = true
	t.Reply = replyAskTimeline
}

func (e *Engine) scoreTimeline(message string, t *Turn) {
	t.Gate = GateScoreTimeline

	e.rescore(t, e.policy.ScoreTimeline(message))
	t.State.HasFinishedQualifying = true
	t.Reply = replyClosingQuestion
}

func (e *Engine) closing(message string, t *Turn) {
	t.Gate = GateClosing

	e.rescore(t, e.policy.ScoreFromKeywords(message))
	switch t.Lead.RelevanceTag {
	case models.TagHotLead, models.TagVeryBigPotential:
		if !t.State.HasOfferedCalendly {
			t.State.HasOfferedCalendly = true
			t.Reply = calendlyOffer(e.policy.CalendlyLink)
		} else {
			t.Reply = replyAfterCalendly
		}
	case models.TagWeakLead:
		t.Reply = replyWeakLeadHolding
	default:
		t.Reply = replyNotRelevant
	}
}

// rescore applies delta, clamps, and re-derives the tag from the new score.
func (e *Engine) rescore(t *Turn, delta int) {
	t.Lead.Score = e.policy.Clamp(t.Lead.Score + delta)
	t.Lead.RelevanceTag = e.policy.TagFromScore(t.Lead.Score)
}
