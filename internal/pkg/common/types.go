package common

import (
	"fmt"
	"strings"
	"unicode"
)

// Language 回應語言代碼
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSlovak  Language = "sk"
	LanguageItalian Language = "it"
	LanguageGerman  Language = "de"
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
)

var languageNames = map[Language]string{
	LanguageEnglish: "English",
	LanguageSlovak:  "Slovak",
	LanguageItalian: "Italian",
	LanguageGerman:  "German",
	LanguageSpanish: "Spanish",
	LanguageFrench:  "French",
}

// Name 回傳語言的英文名稱，未知代碼直接回傳代碼本身
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	if l == "" {
		return languageNames[LanguageEnglish]
	}
	return string(l)
}

// OrDefault 空值時回傳英文
func (l Language) OrDefault() Language {
	if strings.TrimSpace(string(l)) == "" {
		return LanguageEnglish
	}
	return l
}

// Difficulty 食譜難度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty 不分大小寫解析難度，無法辨識時回傳空值
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return ""
	}
}

// RecipeIngredient 食材與份量
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// Label 購物清單使用的顯示文字
func (i RecipeIngredient) Label() string {
	if strings.TrimSpace(i.Quantity) == "" {
		return i.Name
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.Quantity)
}

// Recipe 模型生成的食譜
// 只有 id / title / ingredients / instructions 視為必要，其餘欄位皆可缺漏
type Recipe struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	Ingredients        []RecipeIngredient `json:"ingredients"`
	MissingIngredients []RecipeIngredient `json:"missingIngredients,omitempty"`
	Instructions       []string           `json:"instructions"`

	PrepTime    string `json:"prepTime,omitempty"`
	Calories    string `json:"calories,omitempty"`
	Protein     string `json:"protein,omitempty"`
	Carbs       string `json:"carbs,omitempty"`
	Fat         string `json:"fat,omitempty"`
	Fiber       string `json:"fiber,omitempty"`
	Sugar       string `json:"sugar,omitempty"`
	Sodium      string `json:"sodium,omitempty"`
	Cholesterol string `json:"cholesterol,omitempty"`
	Potassium   string `json:"potassium,omitempty"`
	Vitamins    string `json:"vitamins,omitempty"`
	Minerals    string `json:"minerals,omitempty"`
	VitaminA    string `json:"vitaminA,omitempty"`
	VitaminC    string `json:"vitaminC,omitempty"`
	Calcium     string `json:"calcium,omitempty"`
	Iron        string `json:"iron,omitempty"`

	Difficulty  Difficulty `json:"difficulty,omitempty"`
	DietaryTags []string   `json:"dietaryTags,omitempty"`
	Tips        []string   `json:"tips,omitempty"`

	SourceURL  string `json:"sourceUrl,omitempty"`
	SourceName string `json:"sourceName,omitempty"`

	ImageURL     string   `json:"imageUrl,omitempty"`
	Image        string   `json:"image,omitempty"`
	ImageKeyword string   `json:"imageKeyword,omitempty"`
	UserImages   []string `json:"userImages,omitempty"`
	Cooked       bool     `json:"cooked,omitempty"`
}

// HasImage 是否已有任何插圖
func (r *Recipe) HasImage() bool {
	return strings.TrimSpace(r.ImageURL) != "" || strings.TrimSpace(r.Image) != ""
}

// FilterFlag 單一布林飲食條件
type FilterFlag struct {
	Key    string
	Active bool
}

// DietaryFilters 飲食篩選條件，布林值彼此獨立
type DietaryFilters struct {
	Vegetarian  bool     `json:"vegetarian"`
	Vegan       bool     `json:"vegan"`
	Keto        bool     `json:"keto"`
	GlutenFree  bool     `json:"glutenFree"`
	DairyFree   bool     `json:"dairyFree"`
	LowCarb     bool     `json:"lowCarb"`
	HighProtein bool     `json:"highProtein"`
	LowFat      bool     `json:"lowFat"`
	Cuisine     []string `json:"cuisine"`
	MaxPrepTime string   `json:"maxPrepTime,omitempty"`
}

// MaxPrepTimeAny 不限制準備時間
const MaxPrepTimeAny = "any"

// DefaultFilters 預設篩選條件
func DefaultFilters() DietaryFilters {
	return DietaryFilters{
		Cuisine:     []string{},
		MaxPrepTime: MaxPrepTimeAny,
	}
}

// Flags 依宣告順序回傳所有布林條件
func (f *DietaryFilters) Flags() []FilterFlag {
	return []FilterFlag{
		{Key: "vegetarian", Active: f.Vegetarian},
		{Key: "vegan", Active: f.Vegan},
		{Key: "keto", Active: f.Keto},
		{Key: "glutenFree", Active: f.GlutenFree},
		{Key: "dairyFree", Active: f.DairyFree},
		{Key: "lowCarb", Active: f.LowCarb},
		{Key: "highProtein", Active: f.HighProtein},
		{Key: "lowFat", Active: f.LowFat},
	}
}

func (f *DietaryFilters) flag(key string) *bool {
	switch key {
	case "vegetarian":
		return &f.Vegetarian
	case "vegan":
		return &f.Vegan
	case "keto":
		return &f.Keto
	case "glutenFree":
		return &f.GlutenFree
	case "dairyFree":
		return &f.DairyFree
	case "lowCarb":
		return &f.LowCarb
	case "highProtein":
		return &f.HighProtein
	case "lowFat":
		return &f.LowFat
	}
	return nil
}

// Toggle 切換布林條件，未知鍵回傳 false
func (f *DietaryFilters) Toggle(key string) bool {
	p := f.flag(key)
	if p == nil {
		return false
	}
	*p = !*p
	return true
}

// ToggleCuisine 切換料理類別，保留選取順序
func (f *DietaryFilters) ToggleCuisine(cuisine string) {
	for i, c := range f.Cuisine {
		if c == cuisine {
			f.Cuisine = append(f.Cuisine[:i:i], f.Cuisine[i+1:]...)
			return
		}
	}
	f.Cuisine = append(f.Cuisine, cuisine)
}

// HasTimeLimit 是否設定了準備時間上限
func (f *DietaryFilters) HasTimeLimit() bool {
	t := strings.TrimSpace(f.MaxPrepTime)
	return t != "" && t != MaxPrepTimeAny
}

// HumanizeKey 將 camelCase 鍵轉為空白分隔的小寫詞組，例如 glutenFree -> gluten free
func HumanizeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			sb.WriteRune(' ')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// ShoppingItem 購物清單項目
type ShoppingItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// ChatRole 對話角色
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage 對話訊息
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Text    string   `json:"text"`
	IsError bool     `json:"isError,omitempty"`
}

// InlineImage 已正規化、可直接送往模型的圖片
type InlineImage struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64，不含 data URI 前綴
}

// DataURI 轉為 data URI
func (i InlineImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, i.Data)
}
