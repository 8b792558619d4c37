package recipe

import (
	"context"
	"fmt"
	"strings"

	"culinai/internal/core/ai/decoder"
	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// ingredientWrapperKeys 模型把食材陣列包在物件裡時使用的欄位
var ingredientWrapperKeys = []string{"ingredients", "items"}

// IngredientService 食材識別服務
type IngredientService struct {
	*Service
}

// NewIngredientService 創建新的食材識別服務
func NewIngredientService(base *Service) *IngredientService {
	return &IngredientService{Service: base}
}

// ExtractorPrompt 食材識別指令
func ExtractorPrompt(language common.Language) string {
	return fmt.Sprintf(`Analyze these images of a fridge, pantry, spices, and other food items. Identify all visible ingredients from all images. Combine them into a single deduplicated list.
IMPORTANT: Return the ingredient names strictly in the %s language.
Return strictly a JSON array of strings containing the names of the ingredients found. Do not include Markdown formatting.`,
		language.OrDefault().Name())
}

// ExtractIngredients 從已限制數量的圖片中識別食材。
// 模型失敗或回應無法解析時回傳空清單並記錄錯誤。
func (s *IngredientService) ExtractIngredients(ctx context.Context, images []common.InlineImage, language common.Language) []string {
	if len(images) == 0 {
		return []string{}
	}

	parts, err := imageParts(images)
	if err != nil {
		common.LogWarn("食材識別圖片無效", zap.Error(err))
		return []string{}
	}
	parts = append(parts, provider.TextPart(ExtractorPrompt(language)))

	text, err := s.invokeJSON(ctx, parts)
	if err != nil {
		common.LogError("食材識別失敗",
			zap.Int("images", len(images)),
			zap.Error(err),
		)
		return []string{}
	}

	names := dedupeNames(toStrings(decoder.DecodeArray(text, ingredientWrapperKeys...)))

	common.LogInfo("Successfully identified ingredients",
		zap.Int("images", len(images)),
		zap.Int("ingredients_count", len(names)),
	)
	return names
}

// dedupeNames 不分大小寫去重，保留第一次出現的順序與寫法
func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
