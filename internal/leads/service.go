// internal/leads/service.go
package leads

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/metrics"
	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"
)

var tracer = otel.Tracer("lead-qualifier/leads")

// ChatResult is what a caller sees after one turn.
type ChatResult struct {
	Response     string              `json:"response"`
	RelevanceTag models.RelevanceTag `json:"relevanceTag"`
	Score        int                 `json:"-"`
	Lead         *models.Lead        `json:"-"`
}

// Service runs qualification turns against stored leads.
type Service struct {
	store       Store
	qualifier   qualification.Qualifier
	locker      Locker
	indexer     Indexer
	hooks       []Hook
	lockTimeout time.Duration
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
}

type Option func(*Service)

// WithLocker replaces the in-process locker, e.g. with a RedisLocker.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithIndexer enables SearchLeads and indexes every saved lead.
func WithIndexer(x Indexer) Option {
	return func(s *Service) { s.indexer = x }
}

// WithHooks appends hooks that run after each successful save.
func WithHooks(hooks ...Hook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, hooks...) }
}

func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) { s.lockTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, qualifier qualification.Qualifier, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if qualifier == nil {
		qualifier = qualification.NewEngine(nil)
	}

	s := &Service{
		store:       store,
		qualifier:   qualifier,
		locker:      NewLocalLocker(),
		lockTimeout: 2 * time.Minute,
		logger:      log.With(map[string]interface{}{"component": "lead-service"}),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.indexer != nil {
		s.hooks = append([]Hook{IndexHook(s.indexer)}, s.hooks...)
	}
	return s
}

// HandleMessage runs one qualification turn for the lead identified by
// email. The turn is committed only when the lead is saved.
func (s *Service) HandleMessage(ctx context.Context, email, message string) (*ChatResult, error) {
	email = models.NormalizeEmail(email)
	message = strings.TrimSpace(message)
	if email == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	if message == "" {
		return nil, apperrors.NewValidationError("message", "message is required")
	}

	ctx, span := tracer.Start(ctx, "leads.HandleMessage")
	defer span.End()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.locker.Lock(lockCtx, email)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return nil, err
	}
	defer unlock()

	lead, created, err := s.findOrCreate(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		return nil, err
	}
	previousTag := lead.RelevanceTag

	lead.AppendMessage(models.RoleUser, message, s.now())

	turn, err := s.qualifier.Qualify(ctx, qualification.Request{Message: message, Lead: lead})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "qualify")
		return nil, err
	}

	if turn.Lead.CompanyName != "" {
		lead.CompanyName = turn.Lead.CompanyName
	}
	lead.Score = turn.Lead.Score
	lead.RelevanceTag = turn.Lead.RelevanceTag
	lead.ConversationState = lead.ConversationState.Union(turn.State)
	lead.AppendMessage(models.RoleAssistant, turn.Reply, s.now())
	lead.UpdatedAt = s.now()

	if err := s.store.Save(ctx, lead); err != nil {
		s.logger.Error("failed to save lead", map[string]interface{}{
			"email": email,
			"error": err,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "save")
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewPersistenceError("save lead", err)
	}

	metrics.QualificationTurns.WithLabelValues(turn.Source, string(lead.RelevanceTag)).Inc()
	span.SetAttributes(
		attribute.String("lead.source", turn.Source),
		attribute.String("lead.gate", string(turn.Gate)),
		attribute.String("lead.relevance_tag", string(lead.RelevanceTag)),
		attribute.Int("lead.score", lead.Score),
	)

	s.runHooks(ctx, Change{Lead: lead, PreviousTag: previousTag, Created: created, Source: turn.Source})

	return &ChatResult{
		Response:     turn.Reply,
		RelevanceTag: lead.RelevanceTag,
		Score:        lead.Score,
		Lead:         lead,
	}, nil
}

func (s *Service) findOrCreate(ctx context.Context, email string) (*models.Lead, bool, error) {
	lead, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return lead, false, nil
	}
	if !stderrors.Is(err, apperrors.ErrLeadNotFound) {
		return nil, false, err
	}
	return models.NewLead(s.newID(), email, s.now()), true, nil
}

func (s *Service) runHooks(ctx context.Context, change Change) {
	for _, hook := range s.hooks {
		if err := hook.AfterSave(ctx, change); err != nil {
			metrics.LeadHookFailures.WithLabelValues(hook.Name()).Inc()
			s.logger.Warn("lead hook failed", map[string]interface{}{
				"hook":  hook.Name(),
				"email": change.Lead.Email,
				"error": err,
			})
		}
	}
}

// GetLeadSummaries returns all leads, newest created first.
func (s *Service) GetLeadSummaries(ctx context.Context) ([]*models.Lead, error) {
	return s.store.List(ctx)
}

func (s *Service) GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	return s.store.FindByEmail(ctx, email)
}

// SearchEnabled reports whether SearchLeads is backed by an index.
func (s *Service) SearchEnabled() bool {
	return s.indexer != nil
}

func (s *Service) SearchLeads(ctx context.Context, query string, limit int) ([]models.LeadSummary, error) {
	if s.indexer == nil {
		return nil, apperrors.NewBusinessRuleError("search is not enabled", "configure database.elasticsearch to search leads")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("q", "query is required")
	}
	return s.indexer.Search(ctx, query, limit)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
