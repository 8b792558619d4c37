package cooking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// Session 逐步烹飪模式
type Session struct {
	ID          string    `json:"id"`
	Owner       string    `json:"-"`
	RecipeID    string    `json:"recipe_id"`
	Title       string    `json:"title"`
	Steps       []string  `json:"steps"`
	Current     int       `json:"current"`
	Completed   bool      `json:"completed"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	lastActive time.Time
}

// View 回傳給呼叫端的狀態
type View struct {
	*Session
	StepText    string  `json:"step_text"`
	StepNumber  int     `json:"step_number"`
	TotalSteps  int     `json:"total_steps"`
	Progress    float64 `json:"progress"`
	HasNext     bool    `json:"has_next"`
	HasPrevious bool    `json:"has_previous"`
}

// Progress 已到達的步驟比例 (0, 1]
func (s *Session) Progress() float64 {
	if len(s.Steps) == 0 {
		return 0
	}
	return float64(s.Current+1) / float64(len(s.Steps))
}

func (s *Session) view() View {
	cp := *s
	cp.Steps = append([]string(nil), s.Steps...)
	return View{
		Session:     &cp,
		StepText:    s.Steps[s.Current],
		StepNumber:  s.Current + 1,
		TotalSteps:  len(s.Steps),
		Progress:    s.Progress(),
		HasNext:     s.Current < len(s.Steps)-1,
		HasPrevious: s.Current > 0,
	}
}

// Manager 管理進行中的烹飪模式
type Manager struct {
	narrator Narrator
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager narrator 為 nil 時不朗讀
func NewManager(narrator Narrator) *Manager {
	if narrator == nil {
		narrator = NoOpNarrator{}
	}
	return &Manager{
		narrator: narrator,
		sessions: make(map[string]*Session),
	}
}

// Start 以食譜步驟開始烹飪模式
func (m *Manager) Start(ctx context.Context, owner string, recipe *common.Recipe) (View, error) {
	if len(recipe.Instructions) == 0 {
		return View{}, common.ErrInvalidRequest.Wrap(fmt.Errorf("recipe %s has no instructions", recipe.ID))
	}

	s := &Session{
		ID:        common.GenerateUUID(),
		Owner:     owner,
		RecipeID:  recipe.ID,
		Title:     recipe.Title,
		Steps:     append([]string(nil), recipe.Instructions...),
		StartedAt: time.Now(),
	}
	s.lastActive = s.StartedAt

	m.mu.Lock()
	m.sessions[s.ID] = s
	v := s.view()
	m.mu.Unlock()

	common.LogInfo("開始烹飪模式",
		zap.String("session_id", s.ID),
		zap.String("recipe_id", s.RecipeID),
		zap.Int("steps", len(s.Steps)),
	)
	m.narrate(ctx, v)
	return v, nil
}

// Get 取得烹飪模式狀態
func (m *Manager) Get(owner, id string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(owner, id)
	if err != nil {
		return View{}, err
	}
	return s.view(), nil
}

// Next 下一步，已在最後一步時停在原地
func (m *Manager) Next(ctx context.Context, owner, id string) (View, error) {
	return m.move(ctx, owner, id, 1)
}

// Previous 上一步，已在第一步時停在原地
func (m *Manager) Previous(ctx context.Context, owner, id string) (View, error) {
	return m.move(ctx, owner, id, -1)
}

// Complete 完成烹飪，回傳完成的食譜 ID
func (m *Manager) Complete(owner, id string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(owner, id)
	if err != nil {
		return View{}, err
	}
	s.lastActive = time.Now()
	if !s.Completed {
		s.Completed = true
		s.CompletedAt = time.Now()
		s.Current = len(s.Steps) - 1
	}
	return s.view(), nil
}

// Delete 結束烹飪模式
func (m *Manager) Delete(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(owner, id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// Prune 移除閒置超過 maxIdle 的烹飪模式，回傳移除數量
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len 目前進行中的烹飪模式數
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) move(ctx context.Context, owner, id string, delta int) (View, error) {
	m.mu.Lock()
	s, err := m.lookup(owner, id)
	if err != nil {
		m.mu.Unlock()
		return View{}, err
	}
	next := s.Current + delta
	if next < 0 {
		next = 0
	}
	if next > len(s.Steps)-1 {
		next = len(s.Steps) - 1
	}
	moved := next != s.Current
	s.Current = next
	s.lastActive = time.Now()
	v := s.view()
	m.mu.Unlock()

	if moved {
		m.narrate(ctx, v)
	}
	return v, nil
}

// lookup 呼叫端需持有鎖
func (m *Manager) lookup(owner, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return nil, common.ErrNotFound
	}
	return s, nil
}

// narrate 朗讀失敗只記錄，不影響導覽
func (m *Manager) narrate(ctx context.Context, v View) {
	text := fmt.Sprintf("Step %d of %d. %s", v.StepNumber, v.TotalSteps, v.StepText)
	if err := m.narrator.Speak(ctx, text); err != nil {
		common.LogWarn("朗讀失敗", zap.String("session_id", v.ID), zap.Error(err))
	}
}
