package store

import (
	"culinai/internal/pkg/common"
)

// Profile 使用者資料，密鑰只用於區分使用者，不是安全機制
type Profile struct {
	Name      string `json:"name"`
	SecretKey string `json:"secret_key"`
}

// State 單一使用者的完整應用狀態
type State struct {
	Profile    Profile                  `json:"profile"`
	Language   common.Language          `json:"language"`
	Filters    common.DietaryFilters    `json:"filters"`
	Recipes    []common.Recipe          `json:"recipes"`
	SelectedID string                   `json:"selected_id,omitempty"`
	Favorites  []string                 `json:"favorites"`
	History    []string                 `json:"history"`
	Shopping   []common.ShoppingItem    `json:"shopping"`
	Saved      map[string]common.Recipe `json:"saved"` // 收藏或煮過的食譜，換一批結果後仍可查詢
}

func newState(name, secretKey string) *State {
	return &State{
		Profile:   Profile{Name: name, SecretKey: secretKey},
		Language:  common.LanguageEnglish,
		Filters:   common.DefaultFilters(),
		Recipes:   []common.Recipe{},
		Favorites: []string{},
		History:   []string{},
		Shopping:  []common.ShoppingItem{},
		Saved:     map[string]common.Recipe{},
	}
}

// normalize 補齊舊資料缺漏的欄位
func (s *State) normalize() {
	if s.Language == "" {
		s.Language = common.LanguageEnglish
	}
	if s.Filters.Cuisine == nil {
		s.Filters.Cuisine = []string{}
	}
	if s.Filters.MaxPrepTime == "" {
		s.Filters.MaxPrepTime = common.MaxPrepTimeAny
	}
	if s.Recipes == nil {
		s.Recipes = []common.Recipe{}
	}
	if s.Favorites == nil {
		s.Favorites = []string{}
	}
	if s.History == nil {
		s.History = []string{}
	}
	if s.Shopping == nil {
		s.Shopping = []common.ShoppingItem{}
	}
	if s.Saved == nil {
		s.Saved = map[string]common.Recipe{}
	}
}

// clone 深拷貝，呼叫端拿到的狀態不會與存放中的共用底層陣列
func (s *State) clone() *State {
	cp := *s
	cp.Filters.Cuisine = append([]string{}, s.Filters.Cuisine...)
	cp.Recipes = make([]common.Recipe, len(s.Recipes))
	for i := range s.Recipes {
		cp.Recipes[i] = cloneRecipe(s.Recipes[i])
	}
	cp.Favorites = append([]string{}, s.Favorites...)
	cp.History = append([]string{}, s.History...)
	cp.Shopping = append([]common.ShoppingItem{}, s.Shopping...)
	cp.Saved = make(map[string]common.Recipe, len(s.Saved))
	for id, r := range s.Saved {
		cp.Saved[id] = cloneRecipe(r)
	}
	return &cp
}

func cloneRecipe(r common.Recipe) common.Recipe {
	r.Ingredients = append([]common.RecipeIngredient(nil), r.Ingredients...)
	r.MissingIngredients = append([]common.RecipeIngredient(nil), r.MissingIngredients...)
	r.Instructions = append([]string(nil), r.Instructions...)
	r.DietaryTags = append([]string(nil), r.DietaryTags...)
	r.Tips = append([]string(nil), r.Tips...)
	r.UserImages = append([]string(nil), r.UserImages...)
	return r
}

// findRecipe 先找目前結果，再找已保存的食譜
func (s *State) findRecipe(id string) (*common.Recipe, bool) {
	for i := range s.Recipes {
		if s.Recipes[i].ID == id {
			return &s.Recipes[i], true
		}
	}
	if r, ok := s.Saved[id]; ok {
		return &r, false
	}
	return nil, false
}

// updateRecipe 對目前結果與保存的副本套用同一個修改
func (s *State) updateRecipe(id string, fn func(r *common.Recipe) error) (common.Recipe, error) {
	var updated *common.Recipe
	for i := range s.Recipes {
		if s.Recipes[i].ID == id {
			if err := fn(&s.Recipes[i]); err != nil {
				return common.Recipe{}, err
			}
			updated = &s.Recipes[i]
			break
		}
	}
	if saved, ok := s.Saved[id]; ok {
		if updated != nil {
			s.Saved[id] = cloneRecipe(*updated)
		} else {
			if err := fn(&saved); err != nil {
				return common.Recipe{}, err
			}
			s.Saved[id] = saved
			updated = &saved
		}
	}
	if updated == nil {
		return common.Recipe{}, common.ErrNotFound
	}
	return cloneRecipe(*updated), nil
}

func (s *State) isFavorite(id string) bool {
	for _, f := range s.Favorites {
		if f == id {
			return true
		}
	}
	return false
}

func (s *State) inHistory(id string) bool {
	for _, h := range s.History {
		if h == id {
			return true
		}
	}
	return false
}
