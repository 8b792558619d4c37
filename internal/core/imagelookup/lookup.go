package imagelookup

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"culinai/internal/core/ai/provider"
	"culinai/internal/infrastructure/metrics"
	"culinai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 查詢策略名稱
const (
	StrategyMealDB   = "mealdb"
	StrategyGenerate = "generate"
	StrategyNone     = "none"
)

// Lookup 依關鍵字尋找代表圖片。找不到或失敗時回傳空字串，從不回傳錯誤。
type Lookup interface {
	LookupImage(ctx context.Context, keyword string) string
}

// None 停用插圖查詢
type None struct{}

// LookupImage 永遠回傳空字串
func (None) LookupImage(context.Context, string) string { return "" }

// MealDB 使用 TheMealDB 的縮圖搜尋
type MealDB struct {
	client  *resty.Client
	timeout time.Duration
}

type mealDBResponse struct {
	Meals []struct {
		StrMeal      string `json:"strMeal"`
		StrMealThumb string `json:"strMealThumb"`
	} `json:"meals"`
}

// NewMealDB 創建 MealDB 查詢
func NewMealDB(baseURL string, timeout time.Duration) *MealDB {
	return &MealDB{
		client:  resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		timeout: timeout,
	}
}

// LookupImage 搜尋第一個符合的料理縮圖
func (m *MealDB) LookupImage(ctx context.Context, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var result mealDBResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("s", keyword).
		SetResult(&result).
		Get("/search.php")
	if err != nil || resp.StatusCode() != http.StatusOK {
		common.LogDebug("MealDB 查詢失敗",
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		metrics.RecordImageLookup(StrategyMealDB, false)
		return ""
	}

	for _, meal := range result.Meals {
		if meal.StrMealThumb != "" {
			metrics.RecordImageLookup(StrategyMealDB, true)
			return meal.StrMealThumb
		}
	}
	metrics.RecordImageLookup(StrategyMealDB, false)
	return ""
}

// Generated 以圖片生成模型產生插圖，回傳 data URI
type Generated struct {
	generator provider.ImageGenerator
	timeout   time.Duration
}

// NewGenerated 創建生成式插圖查詢
func NewGenerated(generator provider.ImageGenerator, timeout time.Duration) *Generated {
	return &Generated{generator: generator, timeout: timeout}
}

// LookupImage 生成一張料理照片
func (g *Generated) LookupImage(ctx context.Context, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	img, err := g.generator.GenerateImage(ctx, DishPhotoPrompt(keyword))
	if err != nil {
		common.LogDebug("插圖生成失敗", zap.String("keyword", keyword), zap.Error(err))
		metrics.RecordImageLookup(StrategyGenerate, false)
		return ""
	}
	metrics.RecordImageLookup(StrategyGenerate, true)
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}

// DishPhotoPrompt 料理照片的生成提示
func DishPhotoPrompt(dish string) string {
	return fmt.Sprintf("A professional, appetizing food photography shot of %s. High resolution, natural light, plated on a table.", dish)
}

// New 依設定的策略名稱建立查詢，generator 僅在 generate 策略使用
func New(strategy, baseURL string, timeout time.Duration, generator provider.ImageGenerator) (Lookup, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyMealDB:
		return NewMealDB(baseURL, timeout), nil
	case StrategyGenerate:
		if generator == nil {
			return nil, fmt.Errorf("image lookup: generate strategy needs an image generator")
		}
		return NewGenerated(generator, timeout), nil
	case StrategyNone, "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("image lookup: unknown strategy %q", strategy)
	}
}
