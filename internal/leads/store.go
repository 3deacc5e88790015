// internal/leads/store.go
package leads

import (
	"context"

	"lead-qualifier/internal/models"
)

// Store persists one lead per normalized email.
type Store interface {
	// FindByEmail returns a LEAD_NOT_FOUND error when no lead exists.
	FindByEmail(ctx context.Context, email string) (*models.Lead, error)
	// Save inserts or replaces the lead keyed by its email.
	Save(ctx context.Context, lead *models.Lead) error
	// List returns every lead, newest created first.
	List(ctx context.Context) ([]*models.Lead, error)
	Ping(ctx context.Context) error
	Close() error
}

// Locker serializes turns for the same lead. The returned func releases
// the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Indexer mirrors leads into a search index for the admin view.
type Indexer interface {
	Index(ctx context.Context, lead *models.Lead) error
	Search(ctx context.Context, query string, limit int) ([]models.LeadSummary, error)
}
