package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// FeedbackRepo persists feedback entries.
type FeedbackRepo struct{ Pool PgxPool }

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

// Create stores a feedback entry and returns its id.
func (r *FeedbackRepo) Create(ctx domain.Context, f domain.Feedback) (string, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.Create")
	defer span.End()
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO feedback (id, user_id, content, rating, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, f.UserID, f.Content, f.Rating, f.CreatedAt); err != nil {
		return "", fmt.Errorf("op=feedback.create: %w", err)
	}
	return id, nil
}

// TicketRepo persists support tickets.
type TicketRepo struct{ Pool PgxPool }

// NewTicketRepo constructs a TicketRepo with the given pool.
func NewTicketRepo(p PgxPool) *TicketRepo { return &TicketRepo{Pool: p} }

// Create stores a ticket and returns its id.
func (r *TicketRepo) Create(ctx domain.Context, t domain.Ticket) (string, error) {
	tracer := otel.Tracer("repo.tickets")
	ctx, span := tracer.Start(ctx, "tickets.Create")
	defer span.End()
	id := t.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO tickets (id, user_id, subject, description, status, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, t.UserID, t.Subject, t.Description, t.Status, t.CreatedAt); err != nil {
		return "", fmt.Errorf("op=ticket.create: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx domain.Context, userID string) ([]domain.Ticket, error) {
	tracer := otel.Tracer("repo.tickets")
	ctx, span := tracer.Start(ctx, "tickets.ListByUser")
	defer span.End()
	q := `SELECT id, user_id, subject, description, status, created_at FROM tickets WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=ticket.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Description, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=ticket.list scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=ticket.list rows: %w", err)
	}
	return out, nil
}
