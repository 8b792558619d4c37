package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"culinai/internal/core/ai/cache"
	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	args := m.Called(ctx, req.Model)
	if resp, ok := args.Get(0).(*provider.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func textRequest(prompt string, jsonMode bool) *provider.Request {
	return &provider.Request{Parts: []provider.Part{provider.TextPart(prompt)}, JSONMode: jsonMode}
}

func TestInvoke_FallsBackToNextCandidate(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(nil, errors.New("model-a not found")).Once()
	p.On("Generate", mock.Anything, "model-b").Return(&provider.Response{Text: "{}"}, nil).Once()

	g, err := New([]Candidate{{p, "model-a"}, {p, "model-b"}}, Options{})
	require.NoError(t, err)

	text, err := g.Invoke(context.Background(), textRequest("hi", true))
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
	p.AssertExpectations(t)
}

func TestInvoke_StopsAtFirstSuccess(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(&provider.Response{Text: "ok"}, nil).Once()

	g, err := New([]Candidate{{p, "model-a"}, {p, "model-b"}}, Options{})
	require.NoError(t, err)

	text, err := g.Invoke(context.Background(), textRequest("hi", false))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	p.AssertNotCalled(t, "Generate", mock.Anything, "model-b")
}

func TestInvoke_AllFail(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(nil, errors.New("quota exceeded")).Once()
	p.On("Generate", mock.Anything, "model-b").Return(nil, errors.New("network unreachable")).Once()

	g, err := New([]Candidate{{p, "model-a"}, {p, "model-b"}}, Options{})
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), textRequest("hi", false))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoModelAvailable)
	assert.Contains(t, err.Error(), "network unreachable")
	assert.Contains(t, err.Error(), "model-b")
	assert.NotContains(t, err.Error(), "quota exceeded")
}

func TestInvoke_EmptyTextIsFailure(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(&provider.Response{Text: "   "}, nil).Once()
	p.On("Generate", mock.Anything, "model-b").Return(&provider.Response{Text: "[1]"}, nil).Once()

	g, err := New([]Candidate{{p, "model-a"}, {p, "model-b"}}, Options{})
	require.NoError(t, err)

	text, err := g.Invoke(context.Background(), textRequest("hi", true))
	require.NoError(t, err)
	assert.Equal(t, "[1]", text)
}

type slowProvider struct{ calls []string }

func (s *slowProvider) Name() string { return "slow" }

func (s *slowProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	s.calls = append(s.calls, req.Model)
	if req.Model == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &provider.Response{Text: "fast answer"}, nil
}

func TestInvoke_TimeoutFailsOver(t *testing.T) {
	p := &slowProvider{}
	g, err := New([]Candidate{{p, "slow"}, {p, "fast"}}, Options{AttemptTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	text, err := g.Invoke(context.Background(), textRequest("hi", false))
	require.NoError(t, err)
	assert.Equal(t, "fast answer", text)
	assert.Equal(t, []string{"slow", "fast"}, p.calls)
}

func TestInvoke_DoesNotMutateRequest(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(&provider.Response{Text: "ok"}, nil)

	g, err := New([]Candidate{{p, "model-a"}}, Options{})
	require.NoError(t, err)

	req := textRequest("hi", false)
	_, err = g.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, req.Model)
}

func TestInvoke_CachesJSONResponses(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(&provider.Response{Text: "[]"}, nil).Once()

	store := cache.NewManager(cache.Options{MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	g, err := New([]Candidate{{p, "model-a"}}, Options{Cache: store})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		text, err := g.Invoke(context.Background(), textRequest("same prompt", true))
		require.NoError(t, err)
		assert.Equal(t, "[]", text)
	}
	p.AssertNumberOfCalls(t, "Generate", 1)
}

func TestInvoke_PlainTextNotCached(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, "model-a").Return(&provider.Response{Text: "hello"}, nil).Twice()

	store := cache.NewManager(cache.Options{MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	g, err := New([]Candidate{{p, "model-a"}}, Options{Cache: store})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := g.Invoke(context.Background(), textRequest("chat", false))
		require.NoError(t, err)
	}
	p.AssertNumberOfCalls(t, "Generate", 2)
}

func TestNew_RequiresCandidates(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
