// internal/httpapi/deps.go
package httpapi

import (
	"context"

	"lead-qualifier/internal/common/auth"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/ratelimit"
	"lead-qualifier/internal/leads"
	"lead-qualifier/internal/models"
)

// LeadService is the part of leads.Service the API serves.
type LeadService interface {
	HandleMessage(ctx context.Context, email, message string) (*leads.ChatResult, error)
	GetLeadSummaries(ctx context.Context) ([]*models.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error)
	SearchEnabled() bool
	SearchLeads(ctx context.Context, query string, limit int) ([]models.LeadSummary, error)
	FunnelStats(ctx context.Context) (*leads.FunnelStats, error)
	Ping(ctx context.Context) error
}

// TokenValidator is satisfied by auth.KeycloakClient.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

type Deps struct {
	Service LeadService
	Logger  logger.Logger

	// ChatLimiter throttles POST /api/chat per client. Nil disables it.
	ChatLimiter *ratelimit.KeyLimiter

	// AdminAuth protects the lead and stats endpoints. Nil leaves them open.
	AdminAuth TokenValidator
	AdminRole string

	CORSOrigins []string

	// ReadyChecks run on GET /ready in addition to the store ping.
	ReadyChecks map[string]func(context.Context) error
}
