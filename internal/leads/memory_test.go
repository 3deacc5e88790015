// internal/leads/memory_test.go
package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/models"
)

func TestMemoryStore_SaveAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	lead := models.NewLead("id-1", "Jane@Acme.com ", time.Now())

	require.NoError(t, store.Save(ctx, lead))

	found, err := store.FindByEmail(ctx, "JANE@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", found.ID)
	assert.Equal(t, "jane@acme.com", found.Email)

	found.AppendMessage(models.RoleUser, "mutated", time.Now())
	again, err := store.FindByEmail(ctx, "jane@acme.com")
	require.NoError(t, err)
	assert.Empty(t, again.ChatHistory)
}

func TestMemoryStore_NotFound(t *testing.T) {
	_, err := NewMemoryStore().FindByEmail(context.Background(), "nobody@acme.com")

	assert.True(t, errors.Is(err, apperrors.ErrLeadNotFound))
}

func TestMemoryStore_SaveRequiresEmail(t *testing.T) {
	err := NewMemoryStore().Save(context.Background(), &models.Lead{ID: "x"})

	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, models.NewLead("1", "old@acme.com", base)))
	require.NoError(t, store.Save(ctx, models.NewLead("2", "new@acme.com", base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, models.NewLead("3", "mid@acme.com", base.Add(time.Minute))))

	leads, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, "new@acme.com", leads[0].Email)
	assert.Equal(t, "mid@acme.com", leads[1].Email)
	assert.Equal(t, "old@acme.com", leads[2].Email)
}
