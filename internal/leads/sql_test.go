// internal/leads/sql_test.go
package leads

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-qualifier/internal/common/config"
	"lead-qualifier/internal/common/database"
	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "leads.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewSQLStore(client.DB, DialectSQLite)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func sampleLead(id, email string, created time.Time) *models.Lead {
	lead := models.NewLead(id, email, created)
	lead.CompanyName = "Acme Corp"
	lead.Score = 35
	lead.RelevanceTag = models.TagHotLead
	lead.ConversationState = models.ConversationState{HasAskedEmail: true, HasAskedCompany: true, HasAskedBudget: true}
	lead.AppendMessage(models.RoleUser, "we have $20k", created)
	lead.AppendMessage(models.RoleAssistant, "How many people are on your team?", created.Add(time.Second))
	return lead
}

// ==========================
// SQLite round trips
// ==========================

func TestSQLStore_SQLite_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC)
	lead := sampleLead("id-1", "jane@acme.com", created)

	require.NoError(t, store.Save(ctx, lead))

	found, err := store.FindByEmail(ctx, "Jane@Acme.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", found.ID)
	assert.Equal(t, "Acme Corp", found.CompanyName)
	assert.Equal(t, 35, found.Score)
	assert.Equal(t, models.TagHotLead, found.RelevanceTag)
	assert.Equal(t, lead.ConversationState, found.ConversationState)
	require.Len(t, found.ChatHistory, 2)
	assert.Equal(t, models.RoleAssistant, found.ChatHistory[1].Role)
	assert.True(t, created.Equal(found.CreatedAt))
}

func TestSQLStore_SQLite_Upsert(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	lead := sampleLead("id-1", "jane@acme.com", time.Now().UTC())
	require.NoError(t, store.Save(ctx, lead))

	lead.Score = 80
	lead.RelevanceTag = models.TagVeryBigPotential
	lead.AppendMessage(models.RoleUser, "enterprise rollout", time.Now().UTC())
	require.NoError(t, store.Save(ctx, lead))

	found, err := store.FindByEmail(ctx, "jane@acme.com")
	require.NoError(t, err)
	assert.Equal(t, 80, found.Score)
	assert.Len(t, found.ChatHistory, 3)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLStore_SQLite_ListNewestFirst(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleLead("1", "old@acme.com", base)))
	require.NoError(t, store.Save(ctx, sampleLead("2", "new@acme.com", base.Add(48*time.Hour))))

	leads, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "new@acme.com", leads[0].Email)
}

func TestSQLStore_SQLite_NotFound(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.FindByEmail(context.Background(), "nobody@acme.com")

	assert.True(t, errors.Is(err, apperrors.ErrLeadNotFound))
}

// ==========================
// Postgres dialect (sqlmock)
// ==========================

func TestSQLStore_Postgres_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)
	lead := sampleLead("id-1", "jane@acme.com", time.Now().UTC())

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WithArgs("id-1", "jane@acme.com", "Acme Corp", 35, "Hot lead", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), lead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "email", "company_name", "score", "relevance_tag", "chat_history", "conversation_state", "created_at", "updated_at"}).
		AddRow("id-1", "jane@acme.com", "", 0, "Weak lead", "[]", `{"hasAskedEmail":true}`, created.UnixNano(), created.UnixNano())
	mock.ExpectQuery(regexp.QuoteMeta("FROM leads WHERE email = $1")).
		WithArgs("jane@acme.com").
		WillReturnRows(rows)

	lead, err := store.FindByEmail(context.Background(), "jane@acme.com")

	require.NoError(t, err)
	assert.True(t, lead.ConversationState.HasAskedEmail)
	assert.Empty(t, lead.ChatHistory)
	assert.True(t, created.Equal(lead.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_Failures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)

	mock.ExpectExec("INSERT INTO leads").WillReturnError(errors.New("connection reset"))
	err = store.Save(context.Background(), sampleLead("id-1", "jane@acme.com", time.Now()))
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = store.FindByEmail(context.Background(), "jane@acme.com")
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = store.List(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := NewSQLStore(nil, DialectPostgres)
	lite := NewSQLStore(nil, DialectSQLite)

	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))
}
