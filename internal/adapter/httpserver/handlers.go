package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/config"
	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Auth        usecase.AuthService
	Assessments usecase.AssessmentService
	Results     usecase.ResultService
	Chat        usecase.ChatService
	Support     usecase.SupportService
	Catalog     *catalog.Catalog
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, auth usecase.AuthService, assessments usecase.AssessmentService, results usecase.ResultService, chat usecase.ChatService, support usecase.SupportService, cat *catalog.Catalog, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Auth: auth, Assessments: assessments, Results: results, Chat: chat, Support: support, Catalog: cat, DBCheck: dbCheck, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON negotiates content, caps the body at 1MB, decodes into dst and
// runs struct validation. It writes the error response itself and reports
// whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]string{"accept": a}}})
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// StartHandler records the selected class level, creating the result row.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClassLevel string `json:"class_level" validate:"required"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := s.Assessments.Start(r.Context(), userIDFrom(r), req.ClassLevel)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resultPayload(res))
	}
}

// SubmitArchetypeHandler runs the phase-2 archetype classification.
func (s *Server) SubmitArchetypeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]string `json:"answers" validate:"required,min=1"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := s.Assessments.SubmitArchetype(r.Context(), userIDFrom(r), req.Answers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resultPayload(res))
	}
}

// SubmitPhase3Handler runs the deep-dive analysis.
func (s *Server) SubmitPhase3Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]string `json:"answers" validate:"required,min=1"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := s.Assessments.SubmitPhase3(r.Context(), userIDFrom(r), req.Answers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resultPayload(res))
	}
}

// SubmitFinalHandler runs the final assessment: rule-based scoring on the
// fixed track and narrative generation on all tracks.
func (s *Server) SubmitFinalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode    string            `json:"mode" validate:"required"`
			Answers map[string]string `json:"answers"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := s.Assessments.SubmitFinal(r.Context(), userIDFrom(r), req.Mode, req.Answers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resultPayload(res))
	}
}

// ResultHandler returns the caller's assessment aggregate.
func (s *Server) ResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Results.Fetch(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resultPayload(res))
	}
}

// QuestionsHandler serves the question catalog for a track. The fixed track
// returns the sectioned final questions; open tracks return scenario
// questions. Phase-2 questions are always included so clients can render
// the archetype phase without a second round trip.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackParam := r.URL.Query().Get("track")
		if trackParam == "" {
			trackParam = string(domain.TrackFixedStream)
		}
		track, err := domain.ParseTrack(trackParam)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		payload := map[string]interface{}{
			"track":  string(track),
			"phase2": s.Catalog.Phase2Questions(),
		}
		if track.Scored() {
			payload["sections"] = s.Catalog.FinalSections()
		} else {
			qs, err := s.Catalog.OpenQuestions(track)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			payload["questions"] = qs
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

// ScenariosHandler serves the deep-dive scenario bank for an archetype.
func (s *Server) ScenariosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archetype := r.URL.Query().Get("archetype")
		set, err := s.Catalog.ScenariosFor(archetype)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

// FeedbackHandler records a product rating.
func (s *Server) FeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content" validate:"max=4000"`
			Rating  int    `json:"rating" validate:"required"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		id, err := s.Support.SubmitFeedback(r.Context(), userIDFrom(r), req.Content, req.Rating)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// TicketCreateHandler opens a support ticket.
func (s *Server) TicketCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Subject     string `json:"subject" validate:"required,max=200"`
			Description string `json:"description" validate:"max=4000"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		id, err := s.Support.CreateTicket(r.Context(), userIDFrom(r), req.Subject, req.Description)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": domain.TicketStatusOpen})
	}
}

// TicketListHandler lists the caller's tickets, newest first.
func (s *Server) TicketListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tickets, err := s.Support.ListTickets(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]interface{}, 0, len(tickets))
		for _, t := range tickets {
			out = append(out, map[string]interface{}{
				"id":          t.ID,
				"subject":     t.Subject,
				"description": t.Description,
				"status":      t.Status,
				"created_at":  t.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tickets": out})
	}
}

// ReadyzHandler probes the DB and Redis dependencies.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]interface{}{"ready": ok, "checks": checks})
	}
}

// resultPayload shapes the assessment aggregate for API responses.
func resultPayload(res domain.AssessmentResult) map[string]interface{} {
	scores := make(map[string]int, len(res.StreamScores))
	for code, v := range res.StreamScores {
		scores[string(code)] = v
	}
	p := map[string]interface{}{
		"user_id":            res.UserID,
		"selected_class":     res.SelectedClass,
		"archetype_category": res.ArchetypeCategory,
		"personality":        res.Personality,
		"goal_status":        res.GoalStatus,
		"confidence":         res.Confidence,
		"reasoning":          res.Reasoning,
		"phase3_analysis":    res.Phase3Analysis,
		"track":              string(res.Track),
		"stream_scores":      scores,
		"recommended_stream": res.RecommendedStream,
		"final_analysis":     res.FinalAnalysis,
		"stream_pros":        res.StreamPros,
		"stream_cons":        res.StreamCons,
		"primary_field":      res.PrimaryField,
		"goal_options":       res.GoalOptions,
		"goal_reasoning":     res.GoalReasoning,
	}
	if !res.UpdatedAt.IsZero() {
		p["updated_at"] = res.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return p
}
