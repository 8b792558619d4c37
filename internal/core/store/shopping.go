package store

import (
	"context"
	"errors"
	"strings"

	"culinai/internal/pkg/common"
)

// ShoppingList 購物清單，依加入順序
func (s *Store) ShoppingList(ctx context.Context, name string) ([]common.ShoppingItem, error) {
	var out []common.ShoppingItem
	err := s.view(ctx, name, func(st *State) {
		out = append([]common.ShoppingItem{}, st.Shopping...)
	})
	return out, err
}

// AddShoppingItems 每個名稱建立一個未勾選的項目，空白名稱略過
func (s *Store) AddShoppingItems(ctx context.Context, name string, names []string) ([]common.ShoppingItem, error) {
	items := make([]common.ShoppingItem, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		items = append(items, common.ShoppingItem{ID: common.GenerateUUID(), Name: n})
	}
	if len(items) == 0 {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("no item names"))
	}
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		st.Shopping = append(st.Shopping, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddRecipeToShopping 加入食譜缺少的食材；沒有缺少時加入全部食材
func (s *Store) AddRecipeToShopping(ctx context.Context, name, recipeID string) ([]common.ShoppingItem, error) {
	r, err := s.Recipe(ctx, name, recipeID)
	if err != nil {
		return nil, err
	}
	source := r.MissingIngredients
	if len(source) == 0 {
		source = r.Ingredients
	}
	labels := make([]string, 0, len(source))
	for _, ing := range source {
		labels = append(labels, ing.Label())
	}
	return s.AddShoppingItems(ctx, name, labels)
}

// ToggleShoppingItem 切換勾選狀態
func (s *Store) ToggleShoppingItem(ctx context.Context, name, itemID string) (common.ShoppingItem, error) {
	var out common.ShoppingItem
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		for i := range st.Shopping {
			if st.Shopping[i].ID == itemID {
				st.Shopping[i].Checked = !st.Shopping[i].Checked
				out = st.Shopping[i]
				return nil
			}
		}
		return common.ErrNotFound
	})
	return out, err
}

// RemoveShoppingItem 移除項目
func (s *Store) RemoveShoppingItem(ctx context.Context, name, itemID string) error {
	return s.mutate(ctx, name, func(_ *entry, st *State) error {
		for i := range st.Shopping {
			if st.Shopping[i].ID == itemID {
				st.Shopping = append(st.Shopping[:i:i], st.Shopping[i+1:]...)
				return nil
			}
		}
		return common.ErrNotFound
	})
}

// UncheckedCount 尚未勾選的項目數
func UncheckedCount(items []common.ShoppingItem) int {
	n := 0
	for _, it := range items {
		if !it.Checked {
			n++
		}
	}
	return n
}
