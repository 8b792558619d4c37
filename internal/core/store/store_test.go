package store

import (
	"context"
	"errors"
	"testing"

	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecipes() []common.Recipe {
	return []common.Recipe{
		{
			ID:    "r1",
			Title: "Tomato Soup",
			Ingredients: []common.RecipeIngredient{
				{Name: "Tomato", Quantity: "4"},
				{Name: "Basil", Quantity: "1 bunch"},
			},
			MissingIngredients: []common.RecipeIngredient{{Name: "Basil", Quantity: "1 bunch"}},
			Instructions:       []string{"Chop", "Simmer"},
		},
		{
			ID:           "r2",
			Title:        "Omelette",
			Ingredients:  []common.RecipeIngredient{{Name: "Egg", Quantity: "3"}, {Name: "Salt"}},
			Instructions: []string{"Whisk", "Fry"},
		},
	}
}

func newLoggedIn(t *testing.T) (*Store, context.Context) {
	t.Helper()
	s := New(nil, 0)
	ctx := context.Background()
	_, err := s.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	return s, ctx
}

func withResults(t *testing.T, s *Store, ctx context.Context) {
	t.Helper()
	token, err := s.BeginRequest(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, s.ApplyResults(ctx, "alice", token, sampleRecipes()))
}

func TestLogin(t *testing.T) {
	s := New(nil, 0)
	ctx := context.Background()

	p, err := s.Login(ctx, "  alice ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)

	_, err = s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = s.Login(ctx, "", "x")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)

	assert.NoError(t, s.Authorize(ctx, "alice", "s3cret"))
	assert.ErrorIs(t, s.Authorize(ctx, "alice", "nope"), common.ErrUnauthorized)
	assert.ErrorIs(t, s.Authorize(ctx, "bob", "s3cret"), common.ErrUnauthorized)
}

func TestNewProfileDefaults(t *testing.T) {
	s, ctx := newLoggedIn(t)
	st, err := s.Snapshot(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, common.LanguageEnglish, st.Language)
	assert.Equal(t, common.DefaultFilters(), st.Filters)
	assert.Empty(t, st.Recipes)
	assert.Empty(t, st.Shopping)
}

func TestApplyResults_RejectsStaleToken(t *testing.T) {
	s, ctx := newLoggedIn(t)

	first, err := s.BeginRequest(ctx, "alice")
	require.NoError(t, err)
	second, err := s.BeginRequest(ctx, "alice")
	require.NoError(t, err)
	assert.Greater(t, second, first)

	require.NoError(t, s.ApplyResults(ctx, "alice", second, sampleRecipes()[:1]))

	err = s.ApplyResults(ctx, "alice", first, sampleRecipes())
	assert.ErrorIs(t, err, common.ErrStaleResult)

	recipes, err := s.Recipes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "r1", recipes[0].ID)
}

func TestUserImages_Capped(t *testing.T) {
	s, ctx := newLoggedIn(t)
	withResults(t, s, ctx)

	r, err := s.AddUserImage(ctx, "alice", "r1", "a", "b", "c", "d")
	require.NoError(t, err)
	assert.Len(t, r.UserImages, 4)

	_, err = s.AddUserImage(ctx, "alice", "r1", "e", "f")
	assert.ErrorIs(t, err, common.ErrUserImageLimit)

	r, err = s.AddUserImage(ctx, "alice", "r1", "e")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, r.UserImages)

	_, err = s.AddUserImage(ctx, "alice", "missing", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFavoritesSurviveNewResults(t *testing.T) {
	s, ctx := newLoggedIn(t)
	withResults(t, s, ctx)

	fav, err := s.ToggleFavorite(ctx, "alice", "r2")
	require.NoError(t, err)
	assert.True(t, fav)

	token, err := s.BeginRequest(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, s.ApplyResults(ctx, "alice", token, []common.Recipe{}))

	favorites, err := s.Favorites(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Omelette", favorites[0].Title)

	fav, err = s.ToggleFavorite(ctx, "alice", "r2")
	require.NoError(t, err)
	assert.False(t, fav)

	favorites, err = s.Favorites(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, favorites)

	_, err = s.ToggleFavorite(ctx, "alice", "r2")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompleteCooking_AppendsHistory(t *testing.T) {
	s, ctx := newLoggedIn(t)
	withResults(t, s, ctx)

	require.NoError(t, s.CompleteCooking(ctx, "alice", "r1"))
	require.NoError(t, s.CompleteCooking(ctx, "alice", "r1"))

	history, err := s.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Cooked)

	r, err := s.Recipe(ctx, "alice", "r1")
	require.NoError(t, err)
	assert.True(t, r.Cooked)
}

func TestFilters(t *testing.T) {
	s, ctx := newLoggedIn(t)

	f, err := s.ToggleFilter(ctx, "alice", "glutenFree")
	require.NoError(t, err)
	assert.True(t, f.GlutenFree)

	_, err = s.ToggleFilter(ctx, "alice", "paleo")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)

	_, err = s.ToggleCuisine(ctx, "alice", "Italian")
	require.NoError(t, err)
	_, err = s.ToggleCuisine(ctx, "alice", "Thai")
	require.NoError(t, err)
	f, err = s.ToggleCuisine(ctx, "alice", "Italian")
	require.NoError(t, err)
	assert.Equal(t, []string{"Thai"}, f.Cuisine)

	f, err = s.SetMaxPrepTime(ctx, "alice", "30")
	require.NoError(t, err)
	assert.Equal(t, "30", f.MaxPrepTime)

	_, err = s.SetMaxPrepTime(ctx, "alice", "soon")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)

	f, err = s.Filters(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, f.GlutenFree)
	assert.Equal(t, "30", f.MaxPrepTime)
}

func TestStatePersistsAcrossStores(t *testing.T) {
	p := NewMemoryPersistence()
	ctx := context.Background()

	first := New(p, 0)
	_, err := first.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	_, err = first.AddShoppingItems(ctx, "alice", []string{"Milk"})
	require.NoError(t, err)

	second := New(p, 0)
	assert.ErrorIs(t, second.Authorize(ctx, "alice", "other"), common.ErrUnauthorized)
	items, err := second.ShoppingList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)
}

type failingPersistence struct {
	*MemoryPersistence
	fail bool
}

func (f *failingPersistence) Save(ctx context.Context, profile string, state *State) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryPersistence.Save(ctx, profile, state)
}

func TestMutationRolledBackWhenSaveFails(t *testing.T) {
	p := &failingPersistence{MemoryPersistence: NewMemoryPersistence()}
	s := New(p, 0)
	ctx := context.Background()
	_, err := s.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	p.fail = true
	_, err = s.AddShoppingItems(ctx, "alice", []string{"Milk"})
	assert.Error(t, err)

	items, err := s.ShoppingList(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func (s *Store) cachedProfiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestUnknownProfilesAreNotCached(t *testing.T) {
	s, ctx := newLoggedIn(t)

	for _, name := range []string{"mallory", "eve", "trent"} {
		assert.ErrorIs(t, s.Authorize(ctx, name, "x"), common.ErrUnauthorized)
		_, err := s.Snapshot(ctx, name)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	}
	assert.Equal(t, 1, s.cachedProfiles())

	_, err := s.Login(ctx, "eve", "k")
	require.NoError(t, err)
	assert.Equal(t, 2, s.cachedProfiles())
	assert.NoError(t, s.Authorize(ctx, "eve", "k"))
}
