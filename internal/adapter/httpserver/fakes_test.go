package httpserver_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextstep-labs/nextstep/internal/adapter/ai"
	httpserver "github.com/nextstep-labs/nextstep/internal/adapter/httpserver"
	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/config"
	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/usecase"
)

type stubResultRepo struct {
	mu      sync.Mutex
	results map[string]domain.AssessmentResult
}

func newStubResultRepo() *stubResultRepo {
	return &stubResultRepo{results: map[string]domain.AssessmentResult{}}
}

func (f *stubResultRepo) Load(_ domain.Context, userID string) (domain.AssessmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[userID]
	if !ok {
		return domain.AssessmentResult{}, fmt.Errorf("%w: result", domain.ErrNotFound)
	}
	return res, nil
}

func (f *stubResultRepo) CreateOrUpdate(_ domain.Context, userID string, upd domain.ResultUpdate) (domain.AssessmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.results[userID]
	res.UserID = userID
	if upd.SelectedClass != nil {
		res.SelectedClass = *upd.SelectedClass
	}
	if upd.ArchetypeCategory != nil {
		res.ArchetypeCategory = *upd.ArchetypeCategory
	}
	if upd.Personality != nil {
		res.Personality = *upd.Personality
	}
	if upd.GoalStatus != nil {
		res.GoalStatus = *upd.GoalStatus
	}
	if upd.Confidence != nil {
		res.Confidence = *upd.Confidence
	}
	if upd.Reasoning != nil {
		res.Reasoning = *upd.Reasoning
	}
	if upd.RawAnswers != nil {
		res.RawAnswers = upd.RawAnswers
	}
	if upd.Phase3Answers != nil {
		res.Phase3Answers = upd.Phase3Answers
	}
	if upd.Phase3Analysis != nil {
		res.Phase3Analysis = *upd.Phase3Analysis
	}
	if upd.Track != nil {
		res.Track = *upd.Track
	}
	if upd.FinalAnswers != nil {
		res.FinalAnswers = upd.FinalAnswers
	}
	if upd.StreamScores != nil {
		res.StreamScores = upd.StreamScores
	}
	if upd.RecommendedStream != nil {
		res.RecommendedStream = *upd.RecommendedStream
	}
	if upd.FinalAnalysis != nil {
		res.FinalAnalysis = *upd.FinalAnalysis
	}
	if upd.StreamPros != nil {
		res.StreamPros = upd.StreamPros
	}
	if upd.StreamCons != nil {
		res.StreamCons = upd.StreamCons
	}
	if upd.GoalOptions != nil {
		res.GoalOptions = upd.GoalOptions
	}
	if upd.GoalReasoning != nil {
		res.GoalReasoning = *upd.GoalReasoning
	}
	if upd.PrimaryField != nil {
		res.PrimaryField = *upd.PrimaryField
	}
	res.UpdatedAt = time.Now().UTC()
	f.results[userID] = res
	return res, nil
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	next  int
}

func newStubUserRepo() *stubUserRepo { return &stubUserRepo{users: map[string]domain.User{}} }

func (f *stubUserRepo) Create(_ domain.Context, u domain.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.users {
		if v.Email == u.Email {
			return "", fmt.Errorf("%w: email", domain.ErrConflict)
		}
	}
	f.next++
	u.ID = strconv.Itoa(f.next)
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *stubUserRepo) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
}

func (f *stubUserRepo) Get(_ domain.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	return u, nil
}

func (f *stubUserRepo) Delete(_ domain.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	delete(f.users, id)
	return nil
}

type stubChatRepo struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

func (f *stubChatRepo) Append(_ domain.Context, m domain.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = strconv.Itoa(len(f.msgs) + 1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	f.msgs = append(f.msgs, m)
	return m.ID, nil
}

func (f *stubChatRepo) Recent(_ domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range f.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type stubFeedbackRepo struct {
	mu    sync.Mutex
	items []domain.Feedback
}

func (f *stubFeedbackRepo) Create(_ domain.Context, fb domain.Feedback) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb.ID = strconv.Itoa(len(f.items) + 1)
	f.items = append(f.items, fb)
	return fb.ID, nil
}

type stubTicketRepo struct {
	mu    sync.Mutex
	items []domain.Ticket
}

func (f *stubTicketRepo) Create(_ domain.Context, t domain.Ticket) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = strconv.Itoa(len(f.items) + 1)
	t.CreatedAt = time.Now().UTC()
	f.items = append(f.items, t)
	return t.ID, nil
}

func (f *stubTicketRepo) ListByUser(_ domain.Context, userID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

var errProvider = errors.New("provider unavailable")

// stubGen is a scripted GenerationClient.
type stubGen struct {
	reply string
	err   error
}

func (f *stubGen) Name() string { return "stub" }

func (f *stubGen) Generate(_ domain.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *stubGen) GenerateStream(ctx domain.Context, _ string) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		if f.err != nil {
			errs <- f.err
			return
		}
		const size = 8
		for i := 0; i < len(f.reply); i += size {
			end := i + size
			if end > len(f.reply) {
				end = len(f.reply)
			}
			select {
			case out <- f.reply[i:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}

type testEnv struct {
	srv     *httpserver.Server
	results *stubResultRepo
	chats   *stubChatRepo
}

// newTestServer wires a Server over in-memory repositories and a scripted
// generation client.
func newTestServer(t *testing.T, gen domain.GenerationClient) *testEnv {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	cleaner := ai.NewResponseCleaner()

	results := newStubResultRepo()
	chats := &stubChatRepo{}
	cfg := config.Config{AppEnv: "test", JWTSecret: "test-secret", JWTTTL: time.Hour}

	auth := usecase.NewAuthService(newStubUserRepo(), cfg.JWTSecret, cfg.JWTTTL)
	classifier := usecase.NewArchetypeClassifier(gen, cleaner, cat)
	analyzer := usecase.NewPhase3Analyzer(gen, cat)
	narrative := usecase.NewNarrativeGenerator(gen, cleaner, cat)
	assessments := usecase.NewAssessmentService(results, cat, classifier, analyzer, narrative)
	resultSvc := usecase.NewResultService(results)
	chat := usecase.NewChatService(chats, results, gen, nil, 20, 6000, "gpt-4")
	support := usecase.NewSupportService(&stubFeedbackRepo{}, &stubTicketRepo{})

	srv := httpserver.NewServer(cfg, auth, assessments, resultSvc, chat, support, cat, nil, nil)
	return &testEnv{srv: srv, results: results, chats: chats}
}

// signup registers an account through the handler and returns the session
// token for Bearer auth in later requests.
func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":     email,
		"password":  "hunter2hunter2",
		"full_name": "Test Student",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.srv.SignupHandler()(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

// doAuthed runs an authenticated JSON request through RequireAuth + handler.
func (e *testEnv) doAuthed(t *testing.T, token string, h http.Handler, method, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.srv.RequireAuth(h).ServeHTTP(rec, req)
	return rec
}
