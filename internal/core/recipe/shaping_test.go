package recipe

import (
	"testing"

	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestMissingIngredients_CaseInsensitive(t *testing.T) {
	ingredients := []common.RecipeIngredient{{Name: "Egg"}, {Name: "Milk"}}
	missing := MissingIngredients(ingredients, []string{"egg"})
	assert.Equal(t, []common.RecipeIngredient{{Name: "Milk"}}, missing)
}

func TestMissingIngredients_TrimsAndKeepsOrder(t *testing.T) {
	ingredients := []common.RecipeIngredient{
		{Name: "Flour", Quantity: "2 cups"},
		{Name: " Butter "},
		{Name: "Sugar"},
	}
	missing := MissingIngredients(ingredients, []string{"BUTTER", "salt"})
	assert.Equal(t, []common.RecipeIngredient{{Name: "Flour", Quantity: "2 cups"}, {Name: "Sugar"}}, missing)

	assert.Empty(t, MissingIngredients(ingredients, []string{"flour", "butter", "sugar"}))
}

func TestApplyMissingIngredients_KeepsModelList(t *testing.T) {
	recipes := []common.Recipe{
		{Ingredients: []common.RecipeIngredient{{Name: "Egg"}, {Name: "Milk"}}},
		{
			Ingredients:        []common.RecipeIngredient{{Name: "Egg"}},
			MissingIngredients: []common.RecipeIngredient{{Name: "Saffron"}},
		},
	}
	ApplyMissingIngredients(recipes, []string{"EGG"})
	assert.Equal(t, []common.RecipeIngredient{{Name: "Milk"}}, recipes[0].MissingIngredients)
	assert.Equal(t, []common.RecipeIngredient{{Name: "Saffron"}}, recipes[1].MissingIngredients)
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 30.0, ExtractNumber("30 mins"))
	assert.Equal(t, 1.0, ExtractNumber("1 hour"))
	assert.Equal(t, float64(MissingValue), ExtractNumber("fast"))
	assert.Equal(t, float64(MissingValue), ExtractNumber(""))
	assert.Equal(t, 12.5, ExtractNumber("approx 12.5g"))
}

func TestSortRecipes_PrepTime(t *testing.T) {
	recipes := []common.Recipe{
		{ID: "a", PrepTime: "30 mins"},
		{ID: "b", PrepTime: "fast"},
		{ID: "c", PrepTime: "1 hour"},
		{ID: "d"},
		{ID: "e", PrepTime: "30 minutes"},
	}
	sorted := SortRecipes(recipes, SortByPrepTime)

	ids := make([]string, len(sorted))
	for i, r := range sorted {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c", "a", "e", "b", "d"}, ids)
	assert.Equal(t, "a", recipes[0].ID, "input is not reordered")
}

func TestSortRecipes_CaloriesAndProtein(t *testing.T) {
	recipes := []common.Recipe{
		{ID: "a", Calories: "800 kcal", Protein: "10g"},
		{ID: "b", Calories: "350 kcal", Protein: "45g"},
		{ID: "c", Calories: "unknown", Protein: "30 g"},
	}
	byCal := SortRecipes(recipes, SortByCalories)
	assert.Equal(t, "b", byCal[0].ID)
	assert.Equal(t, "c", byCal[2].ID)

	byProtein := SortRecipes(recipes, SortByProtein)
	assert.Equal(t, []string{"a", "c", "b"}, []string{byProtein[0].ID, byProtein[1].ID, byProtein[2].ID})
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("Prep_Time")
	assert.True(t, ok)
	assert.Equal(t, SortByPrepTime, k)

	_, ok = ParseSortKey("rating")
	assert.False(t, ok)
}

func TestImageKeyword(t *testing.T) {
	assert.Equal(t, "ramen", ImageKeyword(&common.Recipe{Title: "Spicy Miso Ramen", ImageKeyword: " ramen "}))
	assert.Equal(t, "Spicy Miso", ImageKeyword(&common.Recipe{Title: "Spicy Miso Ramen"}))
	assert.Equal(t, "Paella", ImageKeyword(&common.Recipe{Title: "Paella"}))
	assert.Equal(t, "", ImageKeyword(&common.Recipe{}))
}
