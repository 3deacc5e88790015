// internal/leads/memory.go
package leads

import (
	"context"
	"sort"
	"sync"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/models"
)

// MemoryStore keeps leads in process. Callers always receive copies.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*models.Lead
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{leads: make(map[string]*models.Lead)}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.Lead, error) {
	key := models.NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[key]
	if !ok {
		return nil, apperrors.NewLeadNotFoundError(key)
	}
	return lead.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, lead *models.Lead) error {
	if lead == nil || lead.Email == "" {
		return apperrors.NewValidationError("email", "lead email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads[models.NormalizeEmail(lead.Email)] = lead.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Lead, error) {
	s.mu.RLock()
	out := make([]*models.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		out = append(out, lead.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func sortNewestFirst(leads []*models.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		if leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].Email < leads[j].Email
		}
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
}
