package recipe

import (
	"context"
	"testing"

	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGateway 依請求類型回傳不同內容
type scriptedGateway struct {
	ingredients string
	recipes     string
	calls       int
}

func (s *scriptedGateway) Invoke(_ context.Context, req *provider.Request) (string, error) {
	s.calls++
	if req.ImageCount() > 0 {
		return s.ingredients, nil
	}
	return s.recipes, nil
}

func newTestPipeline(gw Invoker, lookup *fakeLookup) *Pipeline {
	base := NewService(gw)
	var suggestions *SuggestionService
	if lookup != nil {
		suggestions = NewSuggestionService(base, lookup)
	} else {
		suggestions = NewSuggestionService(base, nil)
	}
	return NewPipeline(NewIngredientService(base), suggestions)
}

func TestPipeline_ScanComputesMissing(t *testing.T) {
	gw := &scriptedGateway{
		ingredients: `["Egg","Cheese"]`,
		recipes: `[
		  {"id":"1","title":"Omelette","ingredients":[{"name":"egg"},{"name":"Milk"},{"name":"cheese"}],"instructions":["Whisk","Cook"]},
		  {"id":"2","title":"Quiche","ingredients":[{"name":"Egg"}],"missingIngredients":[{"name":"Pastry"}],"instructions":["Bake"]}
		]`,
	}
	p := newTestPipeline(gw, nil)

	res, err := p.Scan(context.Background(), []common.InlineImage{inline("fridge")}, common.DefaultFilters(), common.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, []string{"Egg", "Cheese"}, res.Ingredients)
	require.Len(t, res.Recipes, 2)
	assert.Equal(t, []common.RecipeIngredient{{Name: "Milk"}}, res.Recipes[0].MissingIngredients)
	assert.Equal(t, []common.RecipeIngredient{{Name: "Pastry"}}, res.Recipes[1].MissingIngredients)
	assert.Equal(t, 2, gw.calls)
}

func TestPipeline_ScanNoIngredientsSkipsSynthesis(t *testing.T) {
	gw := &scriptedGateway{ingredients: `[]`, recipes: `[{"id":"x"}]`}
	p := newTestPipeline(gw, nil)

	res, err := p.Scan(context.Background(), []common.InlineImage{inline("empty shelf")}, common.DefaultFilters(), common.LanguageEnglish)
	require.NoError(t, err)
	assert.Empty(t, res.Ingredients)
	assert.Empty(t, res.Recipes)
	assert.Equal(t, 1, gw.calls)
}

func TestPipeline_SearchResolvesImages(t *testing.T) {
	gw := &scriptedGateway{recipes: `[{"id":"1","title":"Beef Tacos","instructions":["Cook"]}]`}
	lookup := &fakeLookup{urls: map[string]string{"Beef Tacos": "https://img/tacos.jpg"}}
	p := newTestPipeline(gw, lookup)

	recipes, err := p.Search(context.Background(), "tacos", common.DefaultFilters(), common.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "https://img/tacos.jpg", recipes[0].ImageURL)
}
