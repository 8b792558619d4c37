package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type reply struct {
	text string
	err  error
}

// scriptedGateway 依序回傳預設的回覆
type scriptedGateway struct {
	mu       sync.Mutex
	replies  []reply
	requests []*provider.Request
}

func (g *scriptedGateway) Invoke(_ context.Context, req *provider.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

type SessionSuite struct {
	suite.Suite
	gw *scriptedGateway
}

func (s *SessionSuite) SetupTest() {
	s.gw = &scriptedGateway{}
}

func (s *SessionSuite) TestWelcomeMessage() {
	plain := NewSession(s.gw, common.LanguageEnglish, false)
	s.Equal([]common.ChatMessage{{Role: common.ChatRoleModel, Text: WelcomeText}}, plain.Transcript())

	withQ := NewSession(s.gw, common.LanguageEnglish, true)
	s.Equal(WelcomeWithQuestion, withQ.Transcript()[0].Text)
}

func (s *SessionSuite) TestSendCarriesPersonaAndHistory() {
	s.gw.replies = []reply{{text: "Use baking soda."}, {text: "About 1 tsp."}}
	sess := NewSession(s.gw, common.LanguageFrench, false)

	_, err := sess.Send(context.Background(), "What replaces baking powder?")
	s.Require().NoError(err)
	_, err = sess.Send(context.Background(), "How much?")
	s.Require().NoError(err)

	s.Require().Len(s.gw.requests, 2)
	first, second := s.gw.requests[0], s.gw.requests[1]
	s.False(first.JSONMode)
	s.Contains(first.SystemInstruction, "French")
	s.Empty(first.History)
	s.Equal([]provider.Message{
		{Role: provider.RoleUser, Text: "What replaces baking powder?"},
		{Role: provider.RoleModel, Text: "Use baking soda."},
	}, second.History)
	s.Equal("How much?", second.PromptText())
}

func (s *SessionSuite) TestFailedSendKeepsUserMessage() {
	s.gw.replies = []reply{
		{err: common.ErrNoModelAvailable},
		{text: "Sure, here is how."},
	}
	sess := NewSession(s.gw, common.LanguageEnglish, false)

	msg, err := sess.Send(context.Background(), "How do I poach an egg?")
	s.Error(err)
	s.True(msg.IsError)

	transcript := sess.Transcript()
	s.Require().Len(transcript, 3)
	s.Equal(common.ChatMessage{Role: common.ChatRoleUser, Text: "How do I poach an egg?"}, transcript[1])
	s.Equal(common.ChatMessage{Role: common.ChatRoleModel, Text: ErrorReplyText, IsError: true}, transcript[2])

	msg, err = sess.Send(context.Background(), "Hello again")
	s.Require().NoError(err)
	s.False(msg.IsError)

	transcript = sess.Transcript()
	s.Require().Len(transcript, 5)
	s.Equal("Hello again", transcript[3].Text)
	s.Equal("Sure, here is how.", transcript[4].Text)

	errorCount := 0
	for _, m := range transcript {
		if m.IsError {
			errorCount++
		}
	}
	s.Equal(1, errorCount)

	// 失敗回合不會出現在歷史中
	s.Empty(s.gw.requests[1].History)
}

func (s *SessionSuite) TestEmptyReplyBecomesApology() {
	s.gw.replies = []reply{{text: "  "}}
	sess := NewSession(s.gw, common.LanguageEnglish, false)

	msg, err := sess.Send(context.Background(), "hi")
	s.Require().NoError(err)
	s.Equal(EmptyReplyText, msg.Text)
	s.False(msg.IsError)
}

func (s *SessionSuite) TestEmptyMessageRejected() {
	sess := NewSession(s.gw, common.LanguageEnglish, false)
	_, err := sess.Send(context.Background(), "   ")
	s.ErrorIs(err, common.ErrInvalidRequest)
	s.Len(sess.Transcript(), 1)
	s.Empty(s.gw.requests)
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func TestManager_CreateWithInitialMessage(t *testing.T) {
	gw := &scriptedGateway{replies: []reply{{text: "Sear it hot."}}}
	m := NewManager(gw)

	sess, err := m.Create(context.Background(), "alice", common.LanguageEnglish, "How do I cook steak?")
	require.NoError(t, err)

	transcript := sess.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, WelcomeWithQuestion, transcript[0].Text)
	assert.Equal(t, "How do I cook steak?", transcript[1].Text)
	assert.Equal(t, "Sear it hot.", transcript[2].Text)

	got, err := m.Get("alice", sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = m.Get("bob", sess.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestManager_GetDeletePrune(t *testing.T) {
	m := NewManager(&scriptedGateway{})
	_, err := m.Get("alice", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	a, err := m.Create(context.Background(), "alice", common.LanguageEnglish, "")
	require.NoError(t, err)
	b, err := m.Create(context.Background(), "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, common.LanguageEnglish, b.Language)
	assert.Equal(t, 2, m.Len())

	assert.ErrorIs(t, m.Delete("bob", a.ID), common.ErrNotFound)
	require.NoError(t, m.Delete("alice", a.ID))
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, 0, m.Prune(time.Hour))
	assert.Equal(t, 1, m.Prune(-time.Second))
	assert.Equal(t, 0, m.Len())
}

// blockingGateway 直到 release 關閉才回覆
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Invoke(ctx context.Context, _ *provider.Request) (string, error) {
	close(g.entered)
	select {
	case <-g.release:
		return "Done.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestManager_PendingReplyDoesNotBlockOtherSessions(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(gw)

	alice, err := m.Create(context.Background(), "alice", common.LanguageEnglish, "")
	require.NoError(t, err)
	bob, err := m.Create(context.Background(), "bob", common.LanguageEnglish, "")
	require.NoError(t, err)

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		_, _ = alice.Send(context.Background(), "How long to rest dough?")
	}()
	<-gw.entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, 0, m.Prune(time.Hour))
		got, err := m.Get("bob", bob.ID)
		assert.NoError(t, err)
		assert.Same(t, bob, got)
		assert.Len(t, alice.Transcript(), 2)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("other sessions blocked behind a pending reply")
	}

	close(gw.release)
	<-sent
	assert.Len(t, alice.Transcript(), 3)
}
