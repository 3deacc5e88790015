// internal/leads/sql.go
package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/models"
)

// Dialect selects the placeholder style of the underlying driver.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id                 TEXT PRIMARY KEY,
		email              TEXT NOT NULL UNIQUE,
		company_name       TEXT NOT NULL DEFAULT '',
		score              INTEGER NOT NULL DEFAULT 0,
		relevance_tag      TEXT NOT NULL,
		chat_history       TEXT NOT NULL,
		conversation_state TEXT NOT NULL,
		created_at         BIGINT NOT NULL,
		updated_at         BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at)`,
}

const (
	selectColumns = `id, email, company_name, score, relevance_tag, chat_history, conversation_state, created_at, updated_at`

	queryFindByEmail = `SELECT ` + selectColumns + ` FROM leads WHERE email = ?`
	queryList        = `SELECT ` + selectColumns + ` FROM leads ORDER BY created_at DESC, email ASC`
	queryUpsert      = `INSERT INTO leads (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			company_name = excluded.company_name,
			score = excluded.score,
			relevance_tag = excluded.relevance_tag,
			chat_history = excluded.chat_history,
			conversation_state = excluded.conversation_state,
			updated_at = excluded.updated_at`
)

// SQLStore keeps leads in Postgres or SQLite. History and state are stored
// as JSON text so both drivers share one schema.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the leads table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewPersistenceError("migrate", err)
		}
	}
	return nil
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	key := models.NormalizeEmail(email)

	row := s.db.QueryRowContext(ctx, s.rebind(queryFindByEmail), key)
	lead, err := scanLead(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewLeadNotFoundError(key)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("find lead", err)
	}
	return lead, nil
}

func (s *SQLStore) Save(ctx context.Context, lead *models.Lead) error {
	if lead == nil || lead.Email == "" {
		return apperrors.NewValidationError("email", "lead email is required")
	}

	history, err := json.Marshal(lead.ChatHistory)
	if err != nil {
		return apperrors.NewPersistenceError("encode chat history", err)
	}
	state, err := json.Marshal(lead.ConversationState)
	if err != nil {
		return apperrors.NewPersistenceError("encode conversation state", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(queryUpsert),
		lead.ID,
		models.NormalizeEmail(lead.Email),
		lead.CompanyName,
		lead.Score,
		string(lead.RelevanceTag),
		string(history),
		string(state),
		lead.CreatedAt.UnixNano(),
		lead.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return apperrors.NewPersistenceError("save lead", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]*models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(queryList))
	if err != nil {
		return nil, apperrors.NewPersistenceError("list leads", err)
	}
	defer rows.Close()

	var out []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scan lead", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list leads", err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row scanner) (*models.Lead, error) {
	var (
		lead               models.Lead
		tag, history       string
		state              string
		createdAt, updated int64
	)
	if err := row.Scan(&lead.ID, &lead.Email, &lead.CompanyName, &lead.Score, &tag, &history, &state, &createdAt, &updated); err != nil {
		return nil, err
	}

	lead.RelevanceTag = models.RelevanceTag(tag)
	if err := json.Unmarshal([]byte(history), &lead.ChatHistory); err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	if lead.ChatHistory == nil {
		lead.ChatHistory = []models.Message{}
	}
	if err := json.Unmarshal([]byte(state), &lead.ConversationState); err != nil {
		return nil, fmt.Errorf("decode conversation state: %w", err)
	}
	lead.CreatedAt = time.Unix(0, createdAt).UTC()
	lead.UpdatedAt = time.Unix(0, updated).UTC()
	return &lead, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
