package store

import (
	"testing"

	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddShoppingItems(t *testing.T) {
	s, ctx := newLoggedIn(t)

	items, err := s.AddShoppingItems(ctx, "alice", []string{"Milk", "  ", "Eggs"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.False(t, items[0].Checked)

	_, err = s.AddShoppingItems(ctx, "alice", []string{" "})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestAddRecipeToShopping(t *testing.T) {
	s, ctx := newLoggedIn(t)
	withResults(t, s, ctx)

	// 有缺少的食材時只加入缺少的
	items, err := s.AddRecipeToShopping(ctx, "alice", "r1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Basil (1 bunch)", items[0].Name)

	// 沒有缺少時加入全部
	items, err = s.AddRecipeToShopping(ctx, "alice", "r2")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Egg (3)", items[0].Name)
	assert.Equal(t, "Salt", items[1].Name)

	all, err := s.ShoppingList(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestToggleAndRemoveShoppingItem(t *testing.T) {
	s, ctx := newLoggedIn(t)
	items, err := s.AddShoppingItems(ctx, "alice", []string{"Milk", "Eggs"})
	require.NoError(t, err)

	it, err := s.ToggleShoppingItem(ctx, "alice", items[0].ID)
	require.NoError(t, err)
	assert.True(t, it.Checked)

	list, err := s.ShoppingList(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, UncheckedCount(list))

	require.NoError(t, s.RemoveShoppingItem(ctx, "alice", items[1].ID))
	list, err = s.ShoppingList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Milk", list[0].Name)
	assert.Equal(t, 0, UncheckedCount(list))

	assert.ErrorIs(t, s.RemoveShoppingItem(ctx, "alice", "missing"), common.ErrNotFound)
	_, err = s.ToggleShoppingItem(ctx, "alice", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
