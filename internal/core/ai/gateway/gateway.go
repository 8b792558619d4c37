package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"culinai/internal/core/ai/cache"
	"culinai/internal/core/ai/provider"
	"culinai/internal/infrastructure/metrics"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

var errEmptyResponse = errors.New("empty response")

// Candidate 一個候選模型
type Candidate struct {
	Provider provider.Provider
	Model    string
}

func (c Candidate) String() string {
	return c.Provider.Name() + "/" + c.Model
}

// Options 閘道設定
type Options struct {
	// AttemptTimeout 單一候選的逾時，0 表示不額外限制
	AttemptTimeout time.Duration
	// Cache 選用，只快取 JSON 模式的回應
	Cache cache.Store
}

// Gateway 依序嘗試候選模型，回傳第一個非空回應
type Gateway struct {
	candidates []Candidate
	opts       Options
}

// New 創建模型閘道，候選順序即優先順序
func New(candidates []Candidate, opts Options) (*Gateway, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("gateway: at least one model candidate is required")
	}
	return &Gateway{
		candidates: append([]Candidate(nil), candidates...),
		opts:       opts,
	}, nil
}

// Candidates 回傳候選清單副本
func (g *Gateway) Candidates() []Candidate {
	return append([]Candidate(nil), g.candidates...)
}

// Invoke 發送請求，req.Model 會被每個候選覆寫。
// 所有候選都失敗時回傳 common.ErrNoModelAvailable，並包裝最後一個錯誤。
func (g *Gateway) Invoke(ctx context.Context, req *provider.Request) (string, error) {
	cacheKey := ""
	if g.opts.Cache != nil && req.JSONMode {
		cacheKey = req.CacheKey()
		if text, err := g.opts.Cache.Get(ctx, cacheKey); err == nil && text != "" {
			common.LogCacheHit("gateway")
			metrics.RecordCache(true)
			return text, nil
		}
		common.LogCacheMiss("gateway")
		metrics.RecordCache(false)
	}

	var lastErr error
	for _, cand := range g.candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		text, err := g.attempt(ctx, cand, req)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", cand, err)
			continue
		}

		if cacheKey != "" {
			if err := g.opts.Cache.Set(ctx, cacheKey, text); err != nil {
				common.LogWarn("寫入閘道快取失敗", zap.Error(err))
			}
		}
		return text, nil
	}

	metrics.RecordGatewayExhausted()
	common.LogError("所有模型候選皆失敗",
		zap.Int("candidates", len(g.candidates)),
		zap.Error(lastErr),
	)
	return "", common.ErrNoModelAvailable.Wrap(lastErr)
}

// attempt 單次候選呼叫，空白回應視為失敗
func (g *Gateway) attempt(ctx context.Context, cand Candidate, req *provider.Request) (string, error) {
	attemptCtx := ctx
	if g.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.opts.AttemptTimeout)
		defer cancel()
	}

	r := *req
	r.Model = cand.Model

	start := time.Now()
	resp, err := cand.Provider.Generate(attemptCtx, &r)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = errEmptyResponse
	}
	duration := time.Since(start)

	common.LogAICall(cand.Provider.Name(), cand.Model, duration, err)
	metrics.RecordAIAttempt(cand.Provider.Name(), cand.Model, duration, err)

	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
