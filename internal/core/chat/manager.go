package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 對話管理，僅存在記憶體中
type Manager struct {
	gateway  Invoker
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 創建對話管理器
func NewManager(gateway Invoker) *Manager {
	return &Manager{
		gateway:  gateway,
		sessions: make(map[string]*Session),
	}
}

// Create 建立新對話；有初始問題時立即送出
func (m *Manager) Create(ctx context.Context, owner string, language common.Language, initialMessage string) (*Session, error) {
	initialMessage = strings.TrimSpace(initialMessage)
	s := NewSession(m.gateway, language, initialMessage != "")
	s.Owner = owner

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	common.LogInfo("建立對話", zap.String("session_id", s.ID), zap.String("language", string(s.Language)))

	if initialMessage != "" {
		// 初始問題失敗時逐字稿已帶有錯誤回覆，對話本身仍可使用
		if _, err := s.Send(ctx, initialMessage); err != nil {
			common.LogWarn("初始問題回覆失敗", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	return s, nil
}

// Get 取得對話，不屬於 owner 的對話視為不存在
func (m *Manager) Get(owner, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return nil, common.ErrNotFound
	}
	return s, nil
}

// Delete 結束對話
func (m *Manager) Delete(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return common.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Prune 移除閒置超過 maxIdle 的對話，回傳移除數量
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len 目前對話數
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
