package recipe

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"culinai/internal/pkg/common"
)

// MissingValue 無法取出數字時的排序值，排在最後
const MissingValue = 9999

// SortKey 食譜排序欄位
type SortKey string

const (
	SortByPrepTime SortKey = "prep_time"
	SortByCalories SortKey = "calories"
	SortByProtein  SortKey = "protein"
)

// ParseSortKey 解析排序欄位，未知值回傳 false
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByPrepTime, "preptime":
		return SortByPrepTime, true
	case SortByCalories:
		return SortByCalories, true
	case SortByProtein:
		return SortByProtein, true
	}
	return "", false
}

var leadingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractNumber 取出字串中的第一個數字，例如 "30 mins" -> 30；沒有數字時回傳 MissingValue
func ExtractNumber(s string) float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return MissingValue
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return MissingValue
	}
	return n
}

func sortValue(r *common.Recipe, key SortKey) float64 {
	switch key {
	case SortByCalories:
		return ExtractNumber(r.Calories)
	case SortByProtein:
		return ExtractNumber(r.Protein)
	default:
		return ExtractNumber(r.PrepTime)
	}
}

// SortRecipes 依欄位數值穩定遞增排序，回傳新切片
func SortRecipes(recipes []common.Recipe, key SortKey) []common.Recipe {
	out := append([]common.Recipe(nil), recipes...)
	sort.SliceStable(out, func(i, j int) bool {
		return sortValue(&out[i], key) < sortValue(&out[j], key)
	})
	return out
}

// MissingIngredients 以不分大小寫的名稱比對，回傳使用者沒有的食材（保持原順序）
func MissingIngredients(ingredients []common.RecipeIngredient, possessed []string) []common.RecipeIngredient {
	have := make(map[string]struct{}, len(possessed))
	for _, p := range possessed {
		have[normalizeName(p)] = struct{}{}
	}
	missing := make([]common.RecipeIngredient, 0)
	for _, ing := range ingredients {
		if _, ok := have[normalizeName(ing.Name)]; !ok {
			missing = append(missing, ing)
		}
	}
	return missing
}

// ApplyMissingIngredients 模型沒有給出缺少食材時，依持有清單計算
func ApplyMissingIngredients(recipes []common.Recipe, possessed []string) {
	for i := range recipes {
		if len(recipes[i].MissingIngredients) > 0 {
			continue
		}
		recipes[i].MissingIngredients = MissingIngredients(recipes[i].Ingredients, possessed)
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ImageKeyword 插圖搜尋關鍵字：優先用模型提供的提示，否則取標題前兩個字
func ImageKeyword(r *common.Recipe) string {
	if k := strings.TrimSpace(r.ImageKeyword); k != "" {
		return k
	}
	words := strings.Fields(r.Title)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}
