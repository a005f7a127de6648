package httpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ChatHandler streams the counsellor reply over Server-Sent Events. Each
// content chunk is one "data:" frame carrying a JSON object; the stream
// terminates with a "data: [DONE]" frame.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// SSE clients send Accept: text/event-stream, so this endpoint skips
		// the JSON accept negotiation used elsewhere.
		var req struct {
			Message string `json:"message" validate:"required,max=4000"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), nil)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, r, fmt.Errorf("op=chat: streaming unsupported: %w", domain.ErrInternal), nil)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		send := func(chunk string) error {
			frame, err := json.Marshal(map[string]string{"content": chunk})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		}
		err := s.Chat.Stream(r.Context(), userIDFrom(r), req.Message, send)
		if err != nil {
			// Headers are already on the wire, so errors become a terminal
			// SSE frame instead of an HTTP status.
			LoggerFrom(r).Warn("chat stream failed", slog.Any("error", err))
			frame, _ := json.Marshal(map[string]string{"error": err.Error()})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", frame)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// ChatHistoryHandler returns recent chat turns in chronological order.
func (s *Server) ChatHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := s.Chat.History(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, map[string]string{
				"id":         m.ID,
				"sender":     m.Sender,
				"content":    m.Content,
				"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
	}
}
