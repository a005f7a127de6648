package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/usecase"
)

type memProfileCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *memProfileCache) Get(_ domain.Context, userID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[userID]
	return p, ok, nil
}

func (c *memProfileCache) Set(_ domain.Context, userID, profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]string{}
	}
	c.m[userID] = profile
	return nil
}

func newChat(chats *fakeChatRepo, results domain.ResultRepository, gen domain.GenerationClient, cache usecase.ProfileCache) usecase.ChatService {
	return usecase.NewChatService(chats, results, gen, cache, 20, 6000, "gpt-4")
}

func TestChatService_StreamForwardsAndPersists(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo()
	gen := &fakeGen{reply: "Consider Commerce: you scored highest there.", chunkSize: 10}
	svc := newChat(chats, results, gen, nil)

	var got strings.Builder
	err := svc.Stream(context.Background(), "u1", "What should I study?", func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, gen.reply, got.String())

	msgs := chats.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Sender)
	assert.Equal(t, "What should I study?", msgs[0].Content)
	assert.Equal(t, "ai", msgs[1].Sender)
	assert.Equal(t, gen.reply, msgs[1].Content)
}

func TestChatService_CancellationFlushesPartialText(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo()
	gen := &fakeGen{reply: strings.Repeat("chunk ", 50), chunkSize: 6}
	svc := newChat(chats, results, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var n int
	err := svc.Stream(ctx, "u1", "hello", func(chunk string) error {
		n++
		if n == 3 {
			cancel()
		}
		return nil
	})
	require.Error(t, err)

	msgs := chats.all()
	require.GreaterOrEqual(t, len(msgs), 2, "partial reply must be flushed on cancellation")
	last := msgs[len(msgs)-1]
	assert.Equal(t, "ai", last.Sender)
	assert.NotEmpty(t, last.Content)
	assert.True(t, strings.HasPrefix(gen.reply, last.Content))
}

func TestChatService_SendErrorFlushesPartialText(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo()
	gen := &fakeGen{reply: "a long reply that keeps going", chunkSize: 5}
	svc := newChat(chats, results, gen, nil)

	err := svc.Stream(context.Background(), "u1", "hi", func(chunk string) error {
		return errors.New("client went away")
	})
	require.Error(t, err)

	msgs := chats.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ai", msgs[1].Sender)
	assert.Equal(t, "a lon", msgs[1].Content)
}

func TestChatService_ProviderErrorNoFlushWhenNothingArrived(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo()
	svc := newChat(chats, results, &fakeGen{err: fmt.Errorf("%w: upstream", domain.ErrProvider)}, nil)

	err := svc.Stream(context.Background(), "u1", "hi", func(string) error { return nil })
	require.ErrorIs(t, err, domain.ErrProvider)

	msgs := chats.all()
	require.Len(t, msgs, 1, "only the user message persists when no reply text arrived")
	assert.Equal(t, "user", msgs[0].Sender)
}

func TestChatService_PromptCarriesProfileAndHistory(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo()
	rec := domain.StreamName(domain.StreamPCB)
	cat := domain.ArchetypeFocusedSpecialist
	_, err := results.CreateOrUpdate(context.Background(), "u1", domain.ResultUpdate{
		ArchetypeCategory: &cat,
		RecommendedStream: &rec,
	})
	require.NoError(t, err)

	_, err = chats.Append(context.Background(), domain.ChatMessage{UserID: "u1", Sender: "ai", Content: "Earlier advice.", CreatedAt: time.Now()})
	require.NoError(t, err)

	gen := &fakeGen{reply: "ok"}
	svc := newChat(chats, results, gen, nil)
	require.NoError(t, svc.Stream(context.Background(), "u1", "and now?", func(string) error { return nil }))

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, cat)
	assert.Contains(t, prompt, rec)
	assert.Contains(t, prompt, "Counselor: Earlier advice.")
	assert.Contains(t, prompt, "Student: and now?")
}

func TestChatService_ProfileCacheShortCircuitsResultLoad(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	results := newFakeResultRepo() // empty: a Load would find nothing
	cache := &memProfileCache{m: map[string]string{"u1": "- Archetype: Strategic Builder"}}
	gen := &fakeGen{reply: "ok"}
	svc := newChat(chats, results, gen, cache)

	require.NoError(t, svc.Stream(context.Background(), "u1", "hi", func(string) error { return nil }))
	assert.Contains(t, gen.lastPrompt(), "Strategic Builder")
}

func TestChatService_RejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	svc := newChat(&fakeChatRepo{}, newFakeResultRepo(), &fakeGen{reply: "ok"}, nil)
	err := svc.Stream(context.Background(), "u1", "   ", func(string) error { return nil })
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestChatService_HistoryChronological(t *testing.T) {
	t.Parallel()
	chats := &fakeChatRepo{}
	for i := 0; i < 3; i++ {
		_, err := chats.Append(context.Background(), domain.ChatMessage{UserID: "u1", Sender: "user", Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}
	svc := newChat(chats, newFakeResultRepo(), &fakeGen{}, nil)

	msgs, err := svc.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m2", msgs[2].Content)
}
