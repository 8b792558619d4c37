package recipe

import (
	"context"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// Pipeline 串接食材識別、食譜生成與插圖查詢
type Pipeline struct {
	ingredients *IngredientService
	suggestions *SuggestionService
}

// NewPipeline 創建流程
func NewPipeline(ingredients *IngredientService, suggestions *SuggestionService) *Pipeline {
	return &Pipeline{ingredients: ingredients, suggestions: suggestions}
}

// ScanResult 照片流程的結果
type ScanResult struct {
	Ingredients []string        `json:"ingredients"`
	Recipes     []common.Recipe `json:"recipes"`
}

// Ingredients 食材識別
func (p *Pipeline) Ingredients() *IngredientService {
	return p.ingredients
}

// Search 文字查詢
func (p *Pipeline) Search(ctx context.Context, query string, filters common.DietaryFilters, language common.Language) ([]common.Recipe, error) {
	recipes, err := p.suggestions.Synthesize(ctx, query, filters, language)
	if err != nil {
		return recipes, err
	}
	p.suggestions.ResolveImages(ctx, recipes)
	return recipes, nil
}

// Scan 照片流程：識別食材後以食材生成食譜，模型沒給缺少食材時依識別結果計算。
// 圖片必須已經過數量限制與正規化。
func (p *Pipeline) Scan(ctx context.Context, images []common.InlineImage, filters common.DietaryFilters, language common.Language) (*ScanResult, error) {
	names := p.ingredients.ExtractIngredients(ctx, images, language)
	if len(names) == 0 {
		common.LogInfo("照片中沒有識別到食材", zap.Int("images", len(images)))
		return &ScanResult{Ingredients: []string{}, Recipes: []common.Recipe{}}, nil
	}

	recipes, err := p.suggestions.SynthesizeFromIngredients(ctx, names, filters, language)
	if err != nil {
		return &ScanResult{Ingredients: names, Recipes: recipes}, err
	}
	ApplyMissingIngredients(recipes, names)
	p.suggestions.ResolveImages(ctx, recipes)

	return &ScanResult{Ingredients: names, Recipes: recipes}, nil
}
