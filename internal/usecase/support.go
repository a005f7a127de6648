package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// SupportService handles the secondary CRUD surfaces: feedback and tickets.
type SupportService struct {
	Feedback domain.FeedbackRepository
	Tickets  domain.TicketRepository
}

// NewSupportService constructs a SupportService.
func NewSupportService(f domain.FeedbackRepository, t domain.TicketRepository) SupportService {
	return SupportService{Feedback: f, Tickets: t}
}

// SubmitFeedback validates and stores a product rating.
func (s SupportService) SubmitFeedback(ctx domain.Context, userID, content string, rating int) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("%w: rating must be 1-5", domain.ErrInvalidArgument)
	}
	id, err := s.Feedback.Create(ctx, domain.Feedback{
		UserID:    userID,
		Content:   strings.TrimSpace(content),
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("op=support.SubmitFeedback: %w", err)
	}
	return id, nil
}

// CreateTicket opens a support ticket.
func (s SupportService) CreateTicket(ctx domain.Context, userID, subject, description string) (string, error) {
	if userID == "" || strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: user id and subject required", domain.ErrInvalidArgument)
	}
	id, err := s.Tickets.Create(ctx, domain.Ticket{
		UserID:      userID,
		Subject:     strings.TrimSpace(subject),
		Description: strings.TrimSpace(description),
		Status:      domain.TicketStatusOpen,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("op=support.CreateTicket: %w", err)
	}
	return id, nil
}

// ListTickets returns the user's tickets, newest first.
func (s SupportService) ListTickets(ctx domain.Context, userID string) ([]domain.Ticket, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	ts, err := s.Tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=support.ListTickets: %w", err)
	}
	return ts, nil
}
