package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"culinai/internal/api"
	"culinai/internal/api/handlers/health"
	"culinai/internal/core/ai/cache"
	"culinai/internal/core/ai/gateway"
	"culinai/internal/core/ai/gemini"
	"culinai/internal/core/ai/openrouter"
	"culinai/internal/core/ai/provider"
	"culinai/internal/core/chat"
	"culinai/internal/core/cooking"
	"culinai/internal/core/image"
	"culinai/internal/core/imagelookup"
	"culinai/internal/core/recipe"
	"culinai/internal/core/store"
	"culinai/internal/infrastructure/config"
	"culinai/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const backendRedis = "redis"

// app 組裝好的服務與需要在結束時釋放的資源
type app struct {
	services api.Services
	closers  []func() error
}

// Close 依建立的相反順序釋放資源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			common.LogWarn("釋放資源失敗", zap.Error(err))
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]health.Check{}

	var redisClient *redis.Client
	if cfg.Cache.Backend == backendRedis || cfg.Store.Backend == backendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, redisClient.Close)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// 模型候選：Gemini 在前，OpenRouter 在後
	var (
		candidates []gateway.Candidate
		generator  provider.ImageGenerator
	)
	if cfg.Gemini.Enabled {
		gc, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.ImageModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		for _, m := range cfg.Gemini.Models {
			candidates = append(candidates, gateway.Candidate{Provider: gc, Model: m})
		}
		if cfg.Gemini.ImageModel != "" {
			generator = gc
		}
	}
	if cfg.OpenRouter.Enabled {
		oc := openrouter.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.MaxTokens)
		for _, m := range cfg.OpenRouter.Models {
			candidates = append(candidates, gateway.Candidate{Provider: oc, Model: m})
		}
	}

	responseCache, err := buildCache(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}
	if responseCache != nil {
		a.closers = append(a.closers, responseCache.Close)
	}

	gw, err := gateway.New(candidates, gateway.Options{
		AttemptTimeout: cfg.Gateway.AttemptTimeout,
		Cache:          responseCache,
	})
	if err != nil {
		return nil, err
	}

	lookup, err := imagelookup.New(cfg.ImageLookup.Provider, cfg.ImageLookup.BaseURL, cfg.ImageLookup.Timeout, generator)
	if err != nil {
		return nil, err
	}

	persistence, err := buildPersistence(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}

	narrator, err := cooking.NewNarrator(cfg.Cooking.Narrator)
	if err != nil {
		return nil, err
	}

	base := recipe.NewService(gw)
	chats := chat.NewManager(gw)
	cooks := cooking.NewManager(narrator)
	a.closers = append(a.closers,
		startPruner("chat", chats.Prune, cfg.Chat.IdleTimeout),
		startPruner("cooking", cooks.Prune, cfg.Cooking.IdleTimeout),
	)

	models := make([]string, 0, len(candidates))
	for _, c := range candidates {
		models = append(models, c.String())
	}

	a.services = api.Services{
		Pipeline: recipe.NewPipeline(recipe.NewIngredientService(base), recipe.NewSuggestionService(base, lookup)),
		Media:    recipe.NewMediaService(generator),
		Images: image.NewService(image.Options{
			MaxSizeBytes:      cfg.Image.MaxSizeBytes,
			MaxBatch:          cfg.Image.MaxBatch,
			MaxDimension:      cfg.Image.MaxDimension,
			AllowPrivateHosts: cfg.Image.AllowPrivateURLs,
		}),
		Store:   store.New(persistence, cfg.Image.MaxUserImages),
		Chat:    chats,
		Cooking: cooks,
		Models:  models,
		Checks:  checks,
	}

	common.LogInfo("服務初始化完成",
		zap.Strings("models", models),
		zap.String("image_lookup", cfg.ImageLookup.Provider),
		zap.Bool("image_generation", generator != nil),
		zap.Bool("response_cache", responseCache != nil),
		zap.String("narrator", cfg.Cooking.Narrator),
	)
	return a, nil
}

// buildCache 建立閘道回應快取，停用時回傳 nil
func buildCache(ctx context.Context, cfg *config.Config, client *redis.Client) (cache.Store, error) {
	if !cfg.Cache.Enabled || !cfg.Gateway.CacheEnabled {
		return nil, nil
	}
	if strings.EqualFold(cfg.Cache.Backend, backendRedis) {
		rs, err := cache.NewRedisStore(ctx, client, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return cache.NewManager(cache.Options{
		MaxSize:         cfg.Cache.MaxSize,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}), nil
}

// buildPersistence 建立使用者狀態的持久化層
func buildPersistence(ctx context.Context, cfg *config.Config, client *redis.Client) (store.Persistence, error) {
	if strings.EqualFold(cfg.Store.Backend, backendRedis) {
		return store.NewRedisPersistence(ctx, client, cfg.Store.KeyPrefix)
	}
	return store.NewMemoryPersistence(), nil
}

// startPruner 定期清除閒置的工作階段，回傳停止函式
func startPruner(kind string, prune func(time.Duration) int, idle time.Duration) func() error {
	if idle <= 0 {
		return func() error { return nil }
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(idle / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := prune(idle); n > 0 {
					common.LogInfo("清除閒置工作階段", zap.String("kind", kind), zap.Int("count", n))
				}
			case <-done:
				return
			}
		}
	}()
	return func() error {
		close(done)
		return nil
	}
}
