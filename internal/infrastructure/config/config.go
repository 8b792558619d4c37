package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Image       ImageConfig       `mapstructure:"image"`
	ImageLookup ImageLookupConfig `mapstructure:"image_lookup"`
	Store       StoreConfig       `mapstructure:"store"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Cooking     CookingConfig     `mapstructure:"cooking"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	DedupWindow time.Duration     `mapstructure:"dedup_window"`
	LogLevel    string            `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	APIKey     string   `mapstructure:"api_key"`
	Models     []string `mapstructure:"models"`
	ImageModel string   `mapstructure:"image_model"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	APIKey    string   `mapstructure:"api_key"`
	BaseURL   string   `mapstructure:"base_url"`
	Models    []string `mapstructure:"models"`
	MaxTokens int      `mapstructure:"max_tokens"`
}

// GatewayConfig 模型閘道配置
type GatewayConfig struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	CacheEnabled   bool          `mapstructure:"cache_enabled"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes     int64 `mapstructure:"max_size_bytes"`
	MaxBatch         int   `mapstructure:"max_batch"`
	MaxUserImages    int   `mapstructure:"max_user_images"`
	MaxDimension     int   `mapstructure:"max_dimension"`
	AllowPrivateURLs bool  `mapstructure:"allow_private_urls"` // 允許下載內部網路的圖片網址
}

// ImageLookupConfig 食譜插圖查詢配置
type ImageLookupConfig struct {
	Provider string        `mapstructure:"provider"` // mealdb | generate | none
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StoreConfig 使用者狀態儲存配置
type StoreConfig struct {
	Backend   string `mapstructure:"backend"` // memory | redis
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ChatConfig 對話配置
type ChatConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // 閒置超過即清除
}

// CookingConfig 烹飪模式配置
type CookingConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Narrator    string        `mapstructure:"narrator"` // none | log
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.models", "GEMINI_MODELS")
	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openrouter.enabled", "OPENROUTER_ENABLED")
	_ = v.BindEnv("openrouter.models", "OPENROUTER_MODELS")
	_ = v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("image_lookup.provider", "IMAGE_LOOKUP_PROVIDER")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"gemini_api_key:", MaskAPIKey(v.GetString("gemini.api_key")),
		"gemini_models:", v.GetStringSlice("gemini.models"),
	)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Gemini.Models = splitList(config.Gemini.Models)
	config.OpenRouter.Models = splitList(config.OpenRouter.Models)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// splitList 環境變數給的是逗號分隔字串，viper 只會得到單一元素
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "culinai")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.max_body_bytes", 40<<20)

	// 模型設定
	v.SetDefault("gemini.enabled", true)
	v.SetDefault("gemini.models", []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"})
	v.SetDefault("gemini.image_model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.models", []string{"qwen/qwen2.5-vl-72b-instruct:free"})
	v.SetDefault("openrouter.max_tokens", 4096)

	// 閘道設定
	v.SetDefault("gateway.attempt_timeout", "45s")
	v.SetDefault("gateway.cache_enabled", true)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_batch", 5)
	v.SetDefault("image.max_user_images", 5)
	v.SetDefault("image.max_dimension", 1600)
	v.SetDefault("image.allow_private_urls", false)

	v.SetDefault("image_lookup.provider", "mealdb")
	v.SetDefault("image_lookup.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("image_lookup.timeout", "5s")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.key_prefix", "culinai:profile:")
	v.SetDefault("chat.idle_timeout", "2h")
	v.SetDefault("cooking.idle_timeout", "6h")
	v.SetDefault("cooking.narrator", "none")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// Validate 驗證設定
func Validate(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if !config.Gemini.Enabled && !config.OpenRouter.Enabled {
		return fmt.Errorf("at least one model provider must be enabled")
	}
	if config.Gemini.Enabled && len(config.Gemini.Models) == 0 {
		return fmt.Errorf("gemini enabled without models")
	}
	if config.OpenRouter.Enabled && len(config.OpenRouter.Models) == 0 {
		return fmt.Errorf("openrouter enabled without models")
	}
	if config.Gateway.AttemptTimeout <= 0 {
		return fmt.Errorf("invalid gateway attempt timeout")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Image.MaxBatch <= 0 {
		return fmt.Errorf("invalid image max batch")
	}
	if config.Image.MaxUserImages <= 0 {
		return fmt.Errorf("invalid max user images")
	}

	return nil
}
