// Package history is the conversation persistence collaborator. Each
// user/ai turn is mirrored here, and the accumulated turns of a prior
// conversation are formatted back into the system prompt on session start.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists conversation turns in Postgres. The pool is an explicit
// resource owned by the store, acquired on New and released on Close.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("history: parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// AddMessage appends one turn to the conversation. role is "user" or "ai".
func (s *Store) AddMessage(ctx context.Context, conversationID, role, text string) error {
	const query = `
		INSERT INTO message_history (session_id, role, content, created_at)
		VALUES ($1, $2, $3, now())
	`
	if _, err := s.pool.Exec(ctx, query, conversationID, role, text); err != nil {
		return fmt.Errorf("history: insert message: %w", err)
	}
	return nil
}

// FormatHistory returns the conversation's prior turns rendered as a block
// suitable for inclusion in the system prompt, or "" when there are none.
func (s *Store) FormatHistory(ctx context.Context, conversationID string) (string, error) {
	const query = `
		SELECT role, content
		FROM message_history
		WHERE session_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return "", fmt.Errorf("history: query messages: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Text); err != nil {
			return "", fmt.Errorf("history: scan message: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("history: read messages: %w", err)
	}
	return FormatTurns(turns), nil
}

// Turn is one stored conversation turn.
type Turn struct {
	Role string
	Text string
}

// FormatTurns renders turns for prompt injection.
func FormatTurns(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Here is the previous conversation between you (the patient) and me (the pharmacy student):\n")
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
