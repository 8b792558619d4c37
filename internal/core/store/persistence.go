package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"culinai/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Persistence 使用者狀態的持久化介面，找不到時回傳 common.ErrNotFound
type Persistence interface {
	Load(ctx context.Context, profile string) (*State, error)
	Save(ctx context.Context, profile string, state *State) error
}

var (
	_ Persistence = (*MemoryPersistence)(nil)
	_ Persistence = (*RedisPersistence)(nil)
)

// MemoryPersistence 記憶體實作，以 JSON 保存避免與呼叫端共用資料
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersistence 創建記憶體持久化
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string][]byte)}
}

// Load 讀取狀態
func (p *MemoryPersistence) Load(_ context.Context, profile string) (*State, error) {
	p.mu.RLock()
	raw, ok := p.data[profile]
	p.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	var st State
	if err := common.ParseJSONBytes(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &st, nil
}

// Save 寫入狀態，已存在時覆蓋
func (p *MemoryPersistence) Save(_ context.Context, profile string, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	p.mu.Lock()
	p.data[profile] = raw
	p.mu.Unlock()
	return nil
}

// RedisPersistence Redis 實作，每個使用者一個鍵，不設過期時間
type RedisPersistence struct {
	client *redis.Client
	prefix string
}

// NewRedisPersistence 創建 Redis 持久化並測試連線
func NewRedisPersistence(ctx context.Context, client *redis.Client, prefix string) (*RedisPersistence, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPersistence{client: client, prefix: prefix}, nil
}

// Load 讀取狀態
func (p *RedisPersistence) Load(ctx context.Context, profile string) (*State, error) {
	raw, err := p.client.Get(ctx, p.prefix+profile).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	var st State
	if err := common.ParseJSONBytes(raw, &st); err != nil {
		common.LogWarn("使用者狀態格式錯誤", zap.String("profile", profile), zap.Error(err))
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &st, nil
}

// Save 寫入狀態
func (p *RedisPersistence) Save(ctx context.Context, profile string, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := p.client.Set(ctx, p.prefix+profile, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
