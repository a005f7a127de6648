package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextstep-labs/nextstep/internal/adapter/ai/tokencount"
	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ProfileCache caches the rendered assessment profile that seeds the chat
// prompt, so repeat chat turns skip the result lookup. Implementations are
// optional; a nil cache disables caching.
type ProfileCache interface {
	Get(ctx domain.Context, userID string) (string, bool, error)
	Set(ctx domain.Context, userID, profile string) error
}

// ChatService runs the streaming counselling chat. Each turn persists the
// user message, streams the model reply to the caller, and persists the
// accumulated reply text on every exit path, including cancellation.
type ChatService struct {
	Chats   domain.ChatRepository
	Results domain.ResultRepository
	Client  domain.GenerationClient
	Cache   ProfileCache
	Tokens  *tokencount.Counter

	HistoryLimit int
	PromptBudget int
	// Model selects the tokenizer used for budget trimming.
	Model string
}

// NewChatService constructs a ChatService.
func NewChatService(chats domain.ChatRepository, results domain.ResultRepository, client domain.GenerationClient, cache ProfileCache, limit, budget int, model string) ChatService {
	return ChatService{
		Chats:        chats,
		Results:      results,
		Client:       client,
		Cache:        cache,
		Tokens:       tokencount.DefaultCounter,
		HistoryLimit: limit,
		PromptBudget: budget,
		Model:        model,
	}
}

// flushTimeout bounds the detached persistence write after stream teardown.
const flushTimeout = 5 * time.Second

const chatPersona = "You are a warm, practical career counselor for students. Ground every answer in the student's assessment profile below. Keep replies under 200 words, plain text.\n\n"

// Stream handles one chat turn. Chunks are forwarded through send as they
// arrive; the full accumulated text is persisted after the stream ends,
// errors, or is cancelled, whichever comes first.
func (s ChatService) Stream(ctx domain.Context, userID, message string, send func(chunk string) error) error {
	if userID == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: user id and message required", domain.ErrInvalidArgument)
	}
	// Prompt assembly reads history before the current message is
	// appended, so the turn is not duplicated in the prompt.
	prompt := s.buildPrompt(ctx, userID, message)

	if _, err := s.Chats.Append(ctx, domain.ChatMessage{
		UserID:    userID,
		Sender:    "user",
		Content:   message,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("op=chat.Stream append user: %w", err)
	}

	var acc strings.Builder
	// The flush must run on every exit path with a context that survives
	// the caller's cancellation.
	defer func() {
		if acc.Len() == 0 {
			return
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if _, err := s.Chats.Append(flushCtx, domain.ChatMessage{
			UserID:    userID,
			Sender:    "ai",
			Content:   acc.String(),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			slog.Error("chat reply flush failed",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}()

	chunks, errs := s.Client.GenerateStream(ctx, prompt)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// The provider closes the error channel after the
				// content channel, so this receive cannot hang.
				if err := <-errs; err != nil {
					observability.ChatStreamsTotal.WithLabelValues("error").Inc()
					return fmt.Errorf("op=chat.Stream: %w", err)
				}
				observability.ChatStreamsTotal.WithLabelValues("ok").Inc()
				return nil
			}
			acc.WriteString(chunk)
			if err := send(chunk); err != nil {
				observability.ChatStreamsTotal.WithLabelValues("cancelled").Inc()
				return fmt.Errorf("op=chat.Stream send: %w", err)
			}
		case <-ctx.Done():
			observability.ChatStreamsTotal.WithLabelValues("cancelled").Inc()
			return ctx.Err()
		}
	}
}

// History returns the most recent chat turns in chronological order.
func (s ChatService) History(ctx domain.Context, userID string) ([]domain.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	msgs, err := s.Chats.Recent(ctx, userID, s.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("op=chat.History: %w", err)
	}
	return msgs, nil
}

// buildPrompt assembles persona, profile summary, and a token-budgeted tail
// of the recent history. Lookup failures degrade to a shorter prompt.
func (s ChatService) buildPrompt(ctx domain.Context, userID, message string) string {
	profile := s.profileSummary(ctx, userID)

	var history []string
	if msgs, err := s.Chats.Recent(ctx, userID, s.HistoryLimit); err == nil {
		for _, m := range msgs {
			role := "Student"
			if m.Sender == "ai" {
				role = "Counselor"
			}
			history = append(history, role+": "+m.Content)
		}
	} else {
		slog.Warn("chat history unavailable", slog.String("user_id", userID), slog.Any("error", err))
	}

	var fixed strings.Builder
	fixed.WriteString(chatPersona)
	if profile != "" {
		fixed.WriteString("Student Profile:\n")
		fixed.WriteString(profile)
		fixed.WriteString("\n\n")
	}
	fixed.WriteString("Student: " + message + "\nCounselor:")

	// History is what gives under budget pressure; persona, profile, and
	// the current question always survive.
	kept := s.Tokens.TrimToBudget(fixed.String(), history, s.PromptBudget, s.Model)

	var b strings.Builder
	b.WriteString(chatPersona)
	if profile != "" {
		b.WriteString("Student Profile:\n")
		b.WriteString(profile)
		b.WriteString("\n\n")
	}
	if len(kept) > 0 {
		b.WriteString("Conversation so far:\n")
		b.WriteString(strings.Join(kept, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("Student: " + message + "\nCounselor:")
	return b.String()
}

// profileSummary renders the assessment aggregate into labeled plain text,
// consulting the cache first.
func (s ChatService) profileSummary(ctx domain.Context, userID string) string {
	if s.Cache != nil {
		if p, ok, err := s.Cache.Get(ctx, userID); err == nil && ok {
			return p
		}
	}
	res, err := s.Results.Load(ctx, userID)
	if err != nil {
		return ""
	}
	var lines []string
	if res.ArchetypeCategory != "" {
		lines = append(lines, "- Archetype: "+res.ArchetypeCategory)
	}
	if res.Personality != "" {
		lines = append(lines, "- Personality: "+res.Personality)
	}
	if res.RecommendedStream != "" {
		lines = append(lines, "- Recommended Stream: "+res.RecommendedStream)
	}
	if res.PrimaryField != "" {
		lines = append(lines, "- Primary Field: "+res.PrimaryField)
	}
	if res.Phase3Analysis != "" {
		lines = append(lines, "- Work Style: "+res.Phase3Analysis)
	}
	if res.FinalAnalysis != "" {
		lines = append(lines, "- Analysis: "+res.FinalAnalysis)
	}
	profile := strings.Join(lines, "\n")
	if profile != "" && s.Cache != nil {
		if err := s.Cache.Set(ctx, userID, profile); err != nil {
			slog.Warn("profile cache set failed", slog.String("user_id", userID), slog.Any("error", err))
		}
	}
	return profile
}
