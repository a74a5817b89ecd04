package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/metrics"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// foreignKeyViolation is the SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

type PostgresStore struct {
	db      *pgxpool.Pool
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewPostgresStore(db *pgxpool.Pool, log zerolog.Logger, m *metrics.Metrics) *PostgresStore {
	return &PostgresStore{db: db, log: logging.Component(log, "postgres"), metrics: m}
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id        TEXT PRIMARY KEY,
    title     TEXT NOT NULL,
    preview   TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    text            TEXT NOT NULL,
    is_user         BOOLEAN NOT NULL,
    timestamp       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS messages_conversation_ts_idx ON messages (conversation_id, timestamp);
`

// EnsureSchema creates the tables if they don't exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error ensuring schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// --- Conversation Methods ---

const listConversations = `-- name: ListConversations :many
SELECT id, title, preview, timestamp
FROM conversations
ORDER BY timestamp DESC;
`

func (s *PostgresStore) ListConversations(ctx context.Context) (items []models.ConversationRecord, err error) {
	defer func() { s.metrics.ObserveStore("list_conversations", err) }()

	rows, err := s.db.Query(ctx, listConversations)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	items = []models.ConversationRecord{}
	for rows.Next() {
		var i models.ConversationRecord
		if err := rows.Scan(&i.ID, &i.Title, &i.Preview, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		items = append(items, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return items, nil
}

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (id, title, preview, timestamp)
VALUES ($1, $2, $3, NOW())
RETURNING id, title, preview, timestamp;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (_ *models.ConversationRecord, err error) {
	defer func() { s.metrics.ObserveStore("create_conversation", err) }()

	var i models.ConversationRecord
	err = s.db.QueryRow(ctx, createConversation, arg.ID, arg.Title, arg.Preview).
		Scan(&i.ID, &i.Title, &i.Preview, &i.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			s.log.Error().Str("code", pgErr.Code).Str("detail", pgErr.Detail).Str("id", arg.ID).
				Msg("PostgreSQL error inserting conversation")
		}
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}

	s.log.Debug().Str("id", i.ID).Msg("conversation created")
	return &i, nil
}

const deleteConversation = `-- name: DeleteConversation :exec
DELETE FROM conversations
WHERE id = $1;
`

func (s *PostgresStore) DeleteConversation(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveStore("delete_conversation", err) }()

	tag, err := s.db.Exec(ctx, deleteConversation, id)
	if err != nil {
		return fmt.Errorf("error executing delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Message Methods ---

const listMessages = `-- name: ListMessages :many
SELECT id, conversation_id, text, is_user, timestamp
FROM messages
WHERE conversation_id = $1
ORDER BY timestamp ASC;
`

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) (items []models.MessageRecord, err error) {
	defer func() { s.metrics.ObserveStore("list_messages", err) }()

	rows, err := s.db.Query(ctx, listMessages, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	items = []models.MessageRecord{}
	for rows.Next() {
		var i models.MessageRecord
		if err := rows.Scan(&i.ID, &i.ConversationID, &i.Text, &i.IsUser, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		items = append(items, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return items, nil
}

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (id, conversation_id, text, is_user, timestamp)
VALUES ($1, $2, $3, $4, NOW())
RETURNING id, conversation_id, text, is_user, timestamp;
`

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (_ *models.MessageRecord, err error) {
	defer func() { s.metrics.ObserveStore("create_message", err) }()

	var i models.MessageRecord
	err = s.db.QueryRow(ctx, createMessage, arg.ID, arg.ConversationID, arg.Text, arg.IsUser).
		Scan(&i.ID, &i.ConversationID, &i.Text, &i.IsUser, &i.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, store.ErrNotFound
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("database error creating message: insert returned no row: %w", err)
		}
		return nil, fmt.Errorf("database error creating message: %w", err)
	}

	return &i, nil
}
