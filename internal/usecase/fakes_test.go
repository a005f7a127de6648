package usecase_test

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// fakeResultRepo is an in-memory ResultRepository applying partial updates
// the same way the Postgres adapter does.
type fakeResultRepo struct {
	mu      sync.Mutex
	results map[string]domain.AssessmentResult
	commits int
	failAll bool
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: map[string]domain.AssessmentResult{}}
}

func (f *fakeResultRepo) Load(_ domain.Context, userID string) (domain.AssessmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[userID]
	if !ok {
		return domain.AssessmentResult{}, fmt.Errorf("%w: result", domain.ErrNotFound)
	}
	return res, nil
}

func (f *fakeResultRepo) CreateOrUpdate(_ domain.Context, userID string, upd domain.ResultUpdate) (domain.AssessmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return domain.AssessmentResult{}, fmt.Errorf("%w: storage down", domain.ErrInternal)
	}
	f.commits++
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

// fakeGen is a scripted GenerationClient. Generate returns reply (or err);
// GenerateStream chunks reply by chunkSize.
type fakeGen struct {
	mu        sync.Mutex
	reply     string
	err       error
	chunkSize int
	prompts   []string
}

func (f *fakeGen) Name() string { return "fake" }

func (f *fakeGen) Generate(_ domain.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGen) GenerateStream(ctx domain.Context, prompt string) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		if f.err != nil {
			errs <- f.err
			return
		}
		size := f.chunkSize
		if size <= 0 {
			size = 8
		}
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

func (f *fakeGen) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeChatRepo is an in-memory ChatRepository.
type fakeChatRepo struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

func (f *fakeChatRepo) Append(_ domain.Context, m domain.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = strconv.Itoa(len(f.msgs) + 1)
	f.msgs = append(f.msgs, m)
	return m.ID, nil
}

func (f *fakeChatRepo) Recent(_ domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
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

func (f *fakeChatRepo) all() []domain.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChatMessage(nil), f.msgs...)
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User // by id
	next  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}}
}

func (f *fakeUserRepo) Create(_ domain.Context, u domain.User) (string, error) {
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

func (f *fakeUserRepo) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
}

func (f *fakeUserRepo) Get(_ domain.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUserRepo) Delete(_ domain.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	delete(f.users, id)
	return nil
}
