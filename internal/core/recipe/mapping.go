package recipe

import (
	"encoding/json"
	"strconv"
	"strings"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// 模型輸出不可信，先解成 interface{} 再逐欄轉換

// asString 將任意 JSON 值轉為字串，物件與陣列視為缺漏
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// toStrings 轉為字串清單；單一字串視為一個元素，物件取常見文字欄位
func toStrings(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			var s string
			if m, ok := item.(map[string]interface{}); ok {
				s = firstString(m, "text", "step", "instruction", "description", "name", "tip")
			} else {
				s = asString(item)
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// toIngredients 接受 {name, quantity} 物件或純字串
func toIngredients(v interface{}) []common.RecipeIngredient {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]common.RecipeIngredient, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]interface{}:
			name := firstString(t, "name", "ingredient", "item")
			if name == "" {
				continue
			}
			out = append(out, common.RecipeIngredient{
				Name:     name,
				Quantity: firstString(t, "quantity", "amount", "qty"),
			})
		default:
			if name := asString(t); name != "" {
				out = append(out, common.RecipeIngredient{Name: name})
			}
		}
	}
	return out
}

// mapRecipe 將寬鬆的模型物件轉為 Recipe，缺少 id 時補上新的 UUID
func mapRecipe(m map[string]interface{}) common.Recipe {
	r := common.Recipe{
		ID:                 asString(m["id"]),
		Title:              asString(m["title"]),
		Description:        asString(m["description"]),
		Ingredients:        toIngredients(m["ingredients"]),
		MissingIngredients: toIngredients(m["missingIngredients"]),
		Instructions:       toStrings(m["instructions"]),

		PrepTime:    asString(m["prepTime"]),
		Calories:    asString(m["calories"]),
		Protein:     asString(m["protein"]),
		Carbs:       asString(m["carbs"]),
		Fat:         asString(m["fat"]),
		Fiber:       asString(m["fiber"]),
		Sugar:       asString(m["sugar"]),
		Sodium:      asString(m["sodium"]),
		Cholesterol: asString(m["cholesterol"]),
		Potassium:   asString(m["potassium"]),
		Vitamins:    asString(m["vitamins"]),
		Minerals:    asString(m["minerals"]),
		VitaminA:    asString(m["vitaminA"]),
		VitaminC:    asString(m["vitaminC"]),
		Calcium:     asString(m["calcium"]),
		Iron:        asString(m["iron"]),

		Difficulty:  common.ParseDifficulty(asString(m["difficulty"])),
		DietaryTags: toStrings(m["dietaryTags"]),
		Tips:        toStrings(m["tips"]),

		SourceURL:    asString(m["sourceUrl"]),
		SourceName:   asString(m["sourceName"]),
		ImageURL:     asString(m["imageUrl"]),
		Image:        asString(m["image"]),
		ImageKeyword: asString(m["imageKeyword"]),
	}
	if r.ID == "" {
		r.ID = common.GenerateUUID()
	}
	if r.Ingredients == nil {
		r.Ingredients = []common.RecipeIngredient{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return r
}

// MapRecipes 將解碼後的陣列轉為食譜，非物件元素直接略過
func MapRecipes(items []interface{}) []common.Recipe {
	recipes := make([]common.Recipe, 0, len(items))
	skipped := 0
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			skipped++
			continue
		}
		recipes = append(recipes, mapRecipe(m))
	}
	if skipped > 0 {
		common.LogWarn("略過非物件的食譜項目", zap.Int("skipped", skipped))
	}
	return recipes
}
