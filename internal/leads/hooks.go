// internal/leads/hooks.go
package leads

import (
	"context"

	"lead-qualifier/internal/models"
)

// Change describes a committed turn.
type Change struct {
	Lead        *models.Lead
	PreviousTag models.RelevanceTag
	Created     bool
	Source      string
}

// BecameHot reports whether this turn moved the lead into a hot tag.
func (c Change) BecameHot() bool {
	return !c.PreviousTag.IsHot() && c.Lead.RelevanceTag.IsHot()
}

// Hook runs after a lead is saved. Errors are logged and never undo the turn.
type Hook interface {
	Name() string
	AfterSave(ctx context.Context, change Change) error
}

type hookFunc struct {
	name string
	fn   func(ctx context.Context, change Change) error
}

func (h hookFunc) Name() string { return h.name }

func (h hookFunc) AfterSave(ctx context.Context, change Change) error { return h.fn(ctx, change) }

func NewHook(name string, fn func(ctx context.Context, change Change) error) Hook {
	return hookFunc{name: name, fn: fn}
}

// IndexHook writes every saved lead to the search index.
func IndexHook(x Indexer) Hook {
	return NewHook("search-index", func(ctx context.Context, change Change) error {
		return x.Index(ctx, change.Lead)
	})
}

// HotLeadNotifier alerts the sales team about a lead.
type HotLeadNotifier interface {
	NotifyHotLead(ctx context.Context, lead *models.Lead) error
}

// HotLeadHook notifies once, on the turn a lead first becomes hot.
func HotLeadHook(n HotLeadNotifier) Hook {
	return NewHook("hot-lead-alert", func(ctx context.Context, change Change) error {
		if !change.BecameHot() {
			return nil
		}
		return n.NotifyHotLead(ctx, change.Lead)
	})
}

// CRMSyncer pushes a lead to the CRM.
type CRMSyncer interface {
	SyncLead(ctx context.Context, lead *models.Lead) error
}

// CRMHook upserts the lead in the CRM once its company is known.
func CRMHook(c CRMSyncer) Hook {
	return NewHook("crm-sync", func(ctx context.Context, change Change) error {
		if change.Lead.CompanyName == "" && !change.BecameHot() {
			return nil
		}
		return c.SyncLead(ctx, change.Lead)
	})
}
