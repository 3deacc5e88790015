// internal/qualification/qualifier.go
package qualification

import (
	"context"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/metrics"
	"lead-qualifier/internal/models"
)

// Request carries one inbound message together with the lead it belongs to.
// Lead.ChatHistory already ends with the message being qualified.
type Request struct {
	Message string
	Lead    *models.Lead
}

// Qualifier produces the reply, lead facts and conversation state for a turn.
type Qualifier interface {
	Qualify(ctx context.Context, req Request) (*Turn, error)
}

// Fallback tries the primary qualifier and answers from the rule engine when
// it fails. A turn is always produced entirely by one of the two.
type Fallback struct {
	primary Qualifier
	rules   *Engine
	logger  logger.Logger
}

// NewFallback wires primary in front of rules. A nil primary means the rule
// engine answers every turn.
func NewFallback(primary Qualifier, rules *Engine, log logger.Logger) *Fallback {
	if rules == nil {
		rules = NewEngine(nil)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Fallback{primary: primary, rules: rules, logger: log}
}

func (f *Fallback) Qualify(ctx context.Context, req Request) (*Turn, error) {
	if f.primary != nil {
		turn, err := f.primary.Qualify(ctx, req)
		if err == nil && turn != nil {
			return turn, nil
		}

		code := apperrors.CodeOf(err)
		if err == nil {
			code = apperrors.ErrCodeExtraction
		}
		metrics.QualifierFallbacks.WithLabelValues(string(code)).Inc()
		f.logger.Warn("model qualifier failed, answering from rules", map[string]interface{}{
			"errorCode": string(code),
			"error":     errString(err),
		})
	}
	return f.rules.Qualify(ctx, req)
}

func errString(err error) string {
	if err == nil {
		return "empty turn"
	}
	return err.Error()
}
