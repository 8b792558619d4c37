package recipe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"culinai/internal/core/ai/decoder"
	"culinai/internal/core/ai/provider"
	"culinai/internal/core/imagelookup"
	"culinai/internal/infrastructure/metrics"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// RecipesPerRequest 每次請求固定產生的食譜數量
const RecipesPerRequest = 4

// recipeWrapperKeys 模型把食譜陣列包在物件裡時使用的欄位
var recipeWrapperKeys = []string{"recipes", "results", "data"}

// recipeSchema 要求模型輸出的 JSON 結構
const recipeSchema = `[
  {
    "id": "unique_id",
    "title": "Recipe Title",
    "description": "Short appetizing description",
    "sourceUrl": "The URL of the recipe source (e.g. https://www.allrecipes.com/...)",
    "sourceName": "The name of the website source (e.g. AllRecipes)",
    "imageKeyword": "One or two English words naming the dish (e.g. lasagna)",
    "ingredients": [{"name": "ingredient name", "quantity": "amount (e.g. 2 cups)"}],
    "missingIngredients": [{"name": "ingredient name", "quantity": "amount"}],
    "instructions": ["Step 1...", "Step 2..."],
    "prepTime": "e.g. 30 mins",
    "calories": "e.g. 500 kcal",
    "protein": "e.g. 30g",
    "carbs": "e.g. 45g",
    "fat": "e.g. 15g",
    "fiber": "e.g. 5g",
    "sugar": "e.g. 10g",
    "sodium": "e.g. 500mg",
    "cholesterol": "e.g. 30mg",
    "potassium": "e.g. 400mg",
    "vitamins": "e.g. A, C, K",
    "minerals": "e.g. Iron, Calcium",
    "vitaminA": "e.g. 10% DV",
    "vitaminC": "e.g. 15% DV",
    "calcium": "e.g. 20% DV",
    "iron": "e.g. 5% DV",
    "difficulty": "Easy" | "Medium" | "Hard",
    "dietaryTags": ["Vegetarian", "Keto", etc],
    "tips": ["Tip 1", "Tip 2"]
  }
]`

// SuggestionService 食譜推薦服務
type SuggestionService struct {
	*Service
	lookup imagelookup.Lookup
}

// NewSuggestionService 創建新的食譜推薦服務，lookup 為 nil 時不查詢插圖
func NewSuggestionService(base *Service, lookup imagelookup.Lookup) *SuggestionService {
	if lookup == nil {
		lookup = imagelookup.None{}
	}
	return &SuggestionService{Service: base, lookup: lookup}
}

// BuildPrompt 組出食譜提示，輸入相同時輸出必定相同
func BuildPrompt(query string, filters common.DietaryFilters, language common.Language) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("User request: %s", strings.TrimSpace(query)))

	var active []string
	for _, f := range filters.Flags() {
		if f.Active {
			active = append(active, common.HumanizeKey(f.Key))
		}
	}
	if len(active) > 0 {
		lines = append(lines, fmt.Sprintf("I have these dietary restrictions: %s.", strings.Join(active, ", ")))
	}

	if len(filters.Cuisine) > 0 {
		lines = append(lines, fmt.Sprintf("Strictly restrict results to these cuisines: %s.", strings.Join(filters.Cuisine, ", ")))
	}

	if filters.HasTimeLimit() {
		lines = append(lines, fmt.Sprintf("Strictly restrict recipes to have a total prep+cook time of under %s minutes.", strings.TrimSpace(filters.MaxPrepTime)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Please suggest %d distinct recipes that match this request.", RecipesPerRequest),
		fmt.Sprintf("IMPORTANT: Provide the response strictly in the %s language.", language.OrDefault().Name()),
		"",
		`For each recipe, list any essential "missingIngredients" the user is unlikely to have.`,
		"",
		"Return the result strictly as a JSON list of objects matching this structure:",
		recipeSchema,
		"Return only the JSON array. Do not include Markdown formatting.",
	)

	return strings.Join(lines, "\n")
}

// Synthesize 依查詢與篩選條件產生食譜。
// 解碼失敗回傳空清單且不回傳錯誤；所有模型都失敗時回傳空清單與 common.ErrNoModelAvailable。
func (s *SuggestionService) Synthesize(ctx context.Context, query string, filters common.DietaryFilters, language common.Language) ([]common.Recipe, error) {
	prompt := BuildPrompt(query, filters, language)

	text, err := s.invokeJSON(ctx, []provider.Part{provider.TextPart(prompt)})
	if err != nil {
		common.LogError("食譜生成失敗", zap.Error(err))
		return []common.Recipe{}, err
	}

	recipes := MapRecipes(decoder.DecodeArray(text, recipeWrapperKeys...))
	metrics.RecordRecipes(len(recipes))

	common.LogInfo("食譜生成完成",
		zap.Int("recipes", len(recipes)),
		zap.String("language", string(language.OrDefault())),
	)
	return recipes, nil
}

// SynthesizeFromIngredients 將食材名稱以逗號串接後當作查詢
func (s *SuggestionService) SynthesizeFromIngredients(ctx context.Context, ingredients []string, filters common.DietaryFilters, language common.Language) ([]common.Recipe, error) {
	return s.Synthesize(ctx, strings.Join(ingredients, ", "), filters, language)
}

// ResolveImages 為沒有插圖的食譜查詢代表圖片，查詢失敗不影響結果
func (s *SuggestionService) ResolveImages(ctx context.Context, recipes []common.Recipe) {
	var wg sync.WaitGroup
	for i := range recipes {
		if recipes[i].HasImage() {
			continue
		}
		keyword := ImageKeyword(&recipes[i])
		if keyword == "" {
			continue
		}
		wg.Add(1)
		go func(r *common.Recipe, keyword string) {
			defer wg.Done()
			if url := s.lookup.LookupImage(ctx, keyword); url != "" {
				r.ImageURL = url
			}
		}(&recipes[i], keyword)
	}
	wg.Wait()
}
