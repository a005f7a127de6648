package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ChatRepo persists chat turns in PostgreSQL.
type ChatRepo struct{ Pool PgxPool }

// NewChatRepo constructs a ChatRepo with the given pool.
func NewChatRepo(p PgxPool) *ChatRepo { return &ChatRepo{Pool: p} }

// Append stores one chat message and returns its id.
func (r *ChatRepo) Append(ctx domain.Context, m domain.ChatMessage) (string, error) {
	tracer := otel.Tracer("repo.chat")
	ctx, span := tracer.Start(ctx, "chat.Append")
	defer span.End()
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO chat_messages (id, user_id, sender, content, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, m.UserID, m.Sender, m.Content, m.CreatedAt); err != nil {
		return "", fmt.Errorf("op=chat.append: %w", err)
	}
	return id, nil
}

// Recent returns up to limit most recent messages in chronological order.
func (r *ChatRepo) Recent(ctx domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	tracer := otel.Tracer("repo.chat")
	ctx, span := tracer.Start(ctx, "chat.Recent")
	defer span.End()
	q := `SELECT id, user_id, sender, content, created_at FROM chat_messages
	WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=chat.recent: %w", err)
	}
	defer rows.Close()
	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=chat.recent scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=chat.recent rows: %w", err)
	}
	// Newest-first from the query, chronological for callers.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
