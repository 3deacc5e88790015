// internal/qualification/llm/qualifier.go
package llm

import (
	"context"
	"fmt"
	"strings"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/metrics"
	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"
)

// Qualifier answers a turn by asking a generative model to apply the
// qualification policy in one shot.
type Qualifier struct {
	generator Generator
	policy    *qualification.Policy
	clamp     bool
	logger    logger.Logger
}

func NewQualifier(generator Generator, policy *qualification.Policy, clamp bool, log logger.Logger) *Qualifier {
	if policy == nil {
		policy = qualification.DefaultPolicy()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Qualifier{
		generator: generator,
		policy:    policy,
		clamp:     clamp,
		logger: log.With(map[string]interface{}{
			"provider": generator.Name(),
		}),
	}
}

// New builds the configured model qualifier. It returns nil for the "none"
// provider, which leaves the rule engine to answer every turn.
func New(cfg *Config, policy *qualification.Policy, log logger.Logger) (qualification.Qualifier, error) {
	var gen Generator
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderGenAI:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("genai provider requires apis.genai.base_url")
		}
		gen = NewGenAIGenerator(cfg)
	case ProviderOllama:
		g, err := NewOllamaGenerator(cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	return NewQualifier(gen, policy, cfg.ClampScore, log), nil
}

func (q *Qualifier) Qualify(ctx context.Context, req qualification.Request) (*qualification.Turn, error) {
	if req.Lead == nil {
		return nil, fmt.Errorf("qualify: lead is required")
	}

	prompt := BuildPrompt(req, q.policy)
	text, elapsed, err := timed(func() (string, error) {
		return q.generator.Generate(ctx, prompt)
	})
	metrics.ModelRequestDuration.WithLabelValues(q.generator.Name()).Observe(elapsed.Seconds())
	if err != nil {
		return nil, err
	}

	turn, err := ParseResponse(text)
	if err != nil {
		q.logger.Debug("unparsable model response", map[string]interface{}{
			"length": len(text),
		})
		return nil, err
	}
	if strings.TrimSpace(turn.Reply) == "" {
		return nil, apperrors.NewExtractionError("empty response text", nil)
	}

	q.reconcile(turn, req.Lead)
	return turn, nil
}

// reconcile keeps what the model may not change: flags already set, and an
// email the lead is already keyed by.
func (q *Qualifier) reconcile(turn *qualification.Turn, prev *models.Lead) {
	turn.Source = qualification.SourceModel
	turn.Gate = qualification.GateModel
	turn.State = turn.State.Union(prev.ConversationState)

	if prev.Email != "" {
		turn.Lead.Email = prev.Email
	} else {
		turn.Lead.Email = models.NormalizeEmail(turn.Lead.Email)
	}
	if strings.TrimSpace(turn.Lead.CompanyName) == "" {
		turn.Lead.CompanyName = prev.CompanyName
	}

	if q.clamp {
		turn.Lead.Score = q.policy.Clamp(turn.Lead.Score)
		turn.Lead.RelevanceTag = q.policy.TagFromScore(turn.Lead.Score)
	}
}
