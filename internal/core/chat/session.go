package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// 固定的回覆文字
const (
	WelcomeText         = "Hello! I am your AI Chef assistant. Ask me anything about recipes, cooking techniques, or ingredient substitutions!"
	WelcomeWithQuestion = "Hello! I'm ready to help with your cooking question."
	EmptyReplyText      = "I'm sorry, I couldn't generate a response."
	ErrorReplyText      = "Sorry, something went wrong. Please try again."
)

// Invoker 模型閘道
type Invoker interface {
	Invoke(ctx context.Context, req *provider.Request) (string, error)
}

// Persona 依語言產生的系統指令
func Persona(language common.Language) string {
	return fmt.Sprintf(`You are a world-class professional chef and friendly culinary assistant.
Help users with recipes, cooking techniques, ingredient substitutions, meal planning, and kitchen tips.
Keep answers practical and concise. Use short lists when giving steps.
IMPORTANT: Always respond strictly in the %s language.`, language.OrDefault().Name())
}

// Session 一段對話。逐字稿只會追加，失敗的回合不會進入送給模型的歷史。
type Session struct {
	ID        string          `json:"id"`
	Owner     string          `json:"-"`
	Language  common.Language `json:"language"`
	CreatedAt time.Time       `json:"created_at"`

	gateway Invoker
	persona string

	// turn 讓同一對話的回合依序進行；mu 只保護資料，呼叫模型時不持有
	turn       sync.Mutex
	mu         sync.Mutex
	transcript []common.ChatMessage
	history    []provider.Message
	lastActive atomic.Int64
}

// NewSession 創建對話並加入歡迎訊息
func NewSession(gateway Invoker, language common.Language, withQuestion bool) *Session {
	language = language.OrDefault()
	welcome := WelcomeText
	if withQuestion {
		welcome = WelcomeWithQuestion
	}
	now := time.Now()
	s := &Session{
		ID:         common.GenerateUUID(),
		Language:   language,
		CreatedAt:  now,
		gateway:    gateway,
		persona:    Persona(language),
		transcript: []common.ChatMessage{{Role: common.ChatRoleModel, Text: welcome}},
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// Send 送出訊息並回傳模型回覆。
// 失敗時逐字稿保留使用者訊息並追加一則錯誤回覆，回傳的錯誤供呼叫端記錄。
func (s *Session) Send(ctx context.Context, text string) (common.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return common.ChatMessage{}, common.ErrInvalidRequest.Wrap(fmt.Errorf("empty message"))
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.lastActive.Store(time.Now().UnixNano())
	s.mu.Lock()
	s.transcript = append(s.transcript, common.ChatMessage{Role: common.ChatRoleUser, Text: text})
	history := append([]provider.Message(nil), s.history...)
	s.mu.Unlock()

	reply, err := s.gateway.Invoke(ctx, &provider.Request{
		Parts:             []provider.Part{provider.TextPart(text)},
		SystemInstruction: s.persona,
		History:           history,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		common.LogWarn("對話回覆失敗",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		msg := common.ChatMessage{Role: common.ChatRoleModel, Text: ErrorReplyText, IsError: true}
		s.transcript = append(s.transcript, msg)
		return msg, err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = EmptyReplyText
	}
	s.history = append(s.history,
		provider.Message{Role: provider.RoleUser, Text: text},
		provider.Message{Role: provider.RoleModel, Text: reply},
	)

	msg := common.ChatMessage{Role: common.ChatRoleModel, Text: reply}
	s.transcript = append(s.transcript, msg)
	return msg, nil
}

// Transcript 逐字稿副本
func (s *Session) Transcript() []common.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common.ChatMessage(nil), s.transcript...)
}

// LastActive 最後一次送出訊息的時間
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
