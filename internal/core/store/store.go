package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultMaxUserImages 每道食譜可附加的使用者照片上限
const DefaultMaxUserImages = 5

type entry struct {
	mu      sync.Mutex
	state   *State
	token   uint64
	dropped bool
}

// Store 應用狀態，首次存取時從持久化層載入，每次修改後寫回
type Store struct {
	persistence   Persistence
	maxUserImages int

	mu      sync.Mutex
	entries map[string]*entry
}

// New 創建狀態存放；persistence 為 nil 時只存在記憶體
func New(persistence Persistence, maxUserImages int) *Store {
	if persistence == nil {
		persistence = NewMemoryPersistence()
	}
	if maxUserImages <= 0 {
		maxUserImages = DefaultMaxUserImages
	}
	return &Store{
		persistence:   persistence,
		maxUserImages: maxUserImages,
		entries:       make(map[string]*entry),
	}
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// acquire 取得並鎖住使用者的快取項目，尚未載入時讀取持久化層。
// 呼叫端必須以 release 解鎖。
func (s *Store) acquire(ctx context.Context, name string) (*entry, error) {
	for {
		s.mu.Lock()
		e, ok := s.entries[name]
		if !ok {
			e = &entry{}
			s.entries[name] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.dropped {
			// 已被移出快取，重新取得
			e.mu.Unlock()
			continue
		}
		if e.state != nil {
			return e, nil
		}
		st, err := s.persistence.Load(ctx, name)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return e, nil
			}
			s.release(name, e)
			return nil, err
		}
		st.normalize()
		e.state = st
		return e, nil
	}
}

// release 解鎖快取項目；沒有使用者資料的項目不留在快取中
func (s *Store) release(name string, e *entry) {
	if e.state == nil {
		e.dropped = true
		s.mu.Lock()
		if s.entries[name] == e {
			delete(s.entries, name)
		}
		s.mu.Unlock()
	}
	e.mu.Unlock()
}

// Login 登入；首次使用的名稱會建立新的使用者，密鑰不符時回傳 ErrUnauthorized
func (s *Store) Login(ctx context.Context, name, secretKey string) (Profile, error) {
	name = normalizeName(name)
	if name == "" || secretKey == "" {
		return Profile{}, common.ErrInvalidRequest.Wrap(errors.New("name and secret key are required"))
	}
	e, err := s.acquire(ctx, name)
	if err != nil {
		return Profile{}, err
	}
	defer s.release(name, e)

	if e.state != nil {
		if e.state.Profile.SecretKey != secretKey {
			return Profile{}, common.ErrUnauthorized
		}
		return e.state.Profile, nil
	}

	st := newState(name, secretKey)
	if err := s.persistence.Save(ctx, name, st); err != nil {
		return Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	e.state = st
	common.LogInfo("建立新使用者", zap.String("profile", name))
	return st.Profile, nil
}

// Authorize 確認使用者存在且密鑰相符
func (s *Store) Authorize(ctx context.Context, name, secretKey string) error {
	name = normalizeName(name)
	if name == "" {
		return common.ErrUnauthorized
	}
	e, err := s.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer s.release(name, e)
	if e.state == nil || e.state.Profile.SecretKey != secretKey {
		return common.ErrUnauthorized
	}
	return nil
}

// view 唯讀存取
func (s *Store) view(ctx context.Context, name string, fn func(st *State)) error {
	name = normalizeName(name)
	e, err := s.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer s.release(name, e)
	if e.state == nil {
		return common.ErrUnauthorized
	}
	fn(e.state)
	return nil
}

// mutate 在副本上修改，寫回成功後才替換
func (s *Store) mutate(ctx context.Context, name string, fn func(e *entry, st *State) error) error {
	name = normalizeName(name)
	e, err := s.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer s.release(name, e)
	if e.state == nil {
		return common.ErrUnauthorized
	}
	next := e.state.clone()
	if err := fn(e, next); err != nil {
		return err
	}
	if err := s.persistence.Save(ctx, name, next); err != nil {
		common.LogError("儲存使用者狀態失敗", zap.String("profile", name), zap.Error(err))
		return fmt.Errorf("failed to save state: %w", err)
	}
	e.state = next
	return nil
}

// Snapshot 取得目前狀態的副本
func (s *Store) Snapshot(ctx context.Context, name string) (*State, error) {
	var out *State
	err := s.view(ctx, name, func(st *State) { out = st.clone() })
	return out, err
}

// SetLanguage 設定回應語言
func (s *Store) SetLanguage(ctx context.Context, name string, language common.Language) error {
	return s.mutate(ctx, name, func(_ *entry, st *State) error {
		st.Language = language.OrDefault()
		return nil
	})
}

// BeginRequest 發出新的請求序號，舊序號的結果之後會被拒絕
func (s *Store) BeginRequest(ctx context.Context, name string) (uint64, error) {
	name = normalizeName(name)
	e, err := s.acquire(ctx, name)
	if err != nil {
		return 0, err
	}
	defer s.release(name, e)
	if e.state == nil {
		return 0, common.ErrUnauthorized
	}
	e.token++
	return e.token, nil
}

// ApplyResults 以新結果取代目前食譜；token 不是最新時回傳 ErrStaleResult
func (s *Store) ApplyResults(ctx context.Context, name string, token uint64, recipes []common.Recipe) error {
	return s.mutate(ctx, name, func(e *entry, st *State) error {
		if token != e.token {
			common.LogInfo("捨棄過期的搜尋結果",
				zap.String("profile", st.Profile.Name),
				zap.Uint64("token", token),
				zap.Uint64("latest", e.token),
			)
			return common.ErrStaleResult
		}
		st.Recipes = make([]common.Recipe, len(recipes))
		for i := range recipes {
			st.Recipes[i] = cloneRecipe(recipes[i])
		}
		st.SelectedID = ""
		return nil
	})
}

// Recipes 目前的搜尋結果
func (s *Store) Recipes(ctx context.Context, name string) ([]common.Recipe, error) {
	var out []common.Recipe
	err := s.view(ctx, name, func(st *State) {
		out = make([]common.Recipe, len(st.Recipes))
		for i := range st.Recipes {
			out[i] = cloneRecipe(st.Recipes[i])
		}
	})
	return out, err
}

// Recipe 依 ID 取得食譜，包含已收藏或煮過的
func (s *Store) Recipe(ctx context.Context, name, id string) (common.Recipe, error) {
	var (
		out   common.Recipe
		found bool
	)
	err := s.view(ctx, name, func(st *State) {
		if r, _ := st.findRecipe(id); r != nil {
			out = cloneRecipe(*r)
			found = true
		}
	})
	if err != nil {
		return common.Recipe{}, err
	}
	if !found {
		return common.Recipe{}, common.ErrNotFound
	}
	return out, nil
}

// SelectRecipe 設定目前檢視的食譜
func (s *Store) SelectRecipe(ctx context.Context, name, id string) (common.Recipe, error) {
	var out common.Recipe
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		r, _ := st.findRecipe(id)
		if r == nil {
			return common.ErrNotFound
		}
		st.SelectedID = id
		out = cloneRecipe(*r)
		return nil
	})
	return out, err
}

// AddUserImage 為食譜加入使用者照片，超過上限回傳 ErrUserImageLimit
func (s *Store) AddUserImage(ctx context.Context, name, id string, images ...string) (common.Recipe, error) {
	var out common.Recipe
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		r, err := st.updateRecipe(id, func(r *common.Recipe) error {
			if len(r.UserImages)+len(images) > s.maxUserImages {
				return common.ErrUserImageLimit.Wrap(fmt.Errorf("recipe %s already has %d images", id, len(r.UserImages)))
			}
			r.UserImages = append(r.UserImages, images...)
			return nil
		})
		out = r
		return err
	})
	return out, err
}

// SetRecipeImage 以生成的插圖取代食譜圖片
func (s *Store) SetRecipeImage(ctx context.Context, name, id, image string) (common.Recipe, error) {
	var out common.Recipe
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		r, err := st.updateRecipe(id, func(r *common.Recipe) error {
			r.Image = image
			return nil
		})
		out = r
		return err
	})
	return out, err
}

// MarkCooked 標記已煮過並保存食譜
func (s *Store) MarkCooked(ctx context.Context, name, id string) (common.Recipe, error) {
	var out common.Recipe
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		r, err := st.updateRecipe(id, func(r *common.Recipe) error {
			r.Cooked = true
			return nil
		})
		if err != nil {
			return err
		}
		st.Saved[id] = cloneRecipe(r)
		out = r
		return nil
	})
	return out, err
}

// CompleteCooking 烹飪完成：加入歷史紀錄並標記已煮過
func (s *Store) CompleteCooking(ctx context.Context, name, id string) error {
	return s.mutate(ctx, name, func(_ *entry, st *State) error {
		r, err := st.updateRecipe(id, func(r *common.Recipe) error {
			r.Cooked = true
			return nil
		})
		if err != nil {
			return err
		}
		st.Saved[id] = cloneRecipe(r)
		st.History = append(st.History, id)
		return nil
	})
}

// ToggleFavorite 切換收藏，回傳切換後是否為收藏
func (s *Store) ToggleFavorite(ctx context.Context, name, id string) (bool, error) {
	var favorite bool
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		for i, f := range st.Favorites {
			if f == id {
				st.Favorites = append(st.Favorites[:i:i], st.Favorites[i+1:]...)
				if !st.inHistory(id) {
					delete(st.Saved, id)
				}
				favorite = false
				return nil
			}
		}
		r, _ := st.findRecipe(id)
		if r == nil {
			return common.ErrNotFound
		}
		st.Favorites = append(st.Favorites, id)
		st.Saved[id] = cloneRecipe(*r)
		favorite = true
		return nil
	})
	return favorite, err
}

// Favorites 收藏的食譜，依收藏順序
func (s *Store) Favorites(ctx context.Context, name string) ([]common.Recipe, error) {
	return s.resolve(ctx, name, func(st *State) []string { return st.Favorites })
}

// History 煮過的食譜，依完成順序，可重複
func (s *Store) History(ctx context.Context, name string) ([]common.Recipe, error) {
	return s.resolve(ctx, name, func(st *State) []string { return st.History })
}

func (s *Store) resolve(ctx context.Context, name string, ids func(st *State) []string) ([]common.Recipe, error) {
	out := []common.Recipe{}
	err := s.view(ctx, name, func(st *State) {
		for _, id := range ids(st) {
			if r, _ := st.findRecipe(id); r != nil {
				out = append(out, cloneRecipe(*r))
			}
		}
	})
	return out, err
}

// Filters 目前的篩選條件
func (s *Store) Filters(ctx context.Context, name string) (common.DietaryFilters, error) {
	var out common.DietaryFilters
	err := s.view(ctx, name, func(st *State) {
		out = st.Filters
		out.Cuisine = append([]string{}, st.Filters.Cuisine...)
	})
	return out, err
}

// SetFilters 整組取代篩選條件
func (s *Store) SetFilters(ctx context.Context, name string, filters common.DietaryFilters) (common.DietaryFilters, error) {
	if filters.Cuisine == nil {
		filters.Cuisine = []string{}
	}
	if strings.TrimSpace(filters.MaxPrepTime) == "" {
		filters.MaxPrepTime = common.MaxPrepTimeAny
	}
	if err := validatePrepTime(filters.MaxPrepTime); err != nil {
		return common.DietaryFilters{}, err
	}
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		st.Filters = filters
		return nil
	})
	return filters, err
}

// ToggleFilter 切換單一布林條件
func (s *Store) ToggleFilter(ctx context.Context, name, key string) (common.DietaryFilters, error) {
	var out common.DietaryFilters
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		if !st.Filters.Toggle(key) {
			return common.ErrInvalidRequest.Wrap(fmt.Errorf("unknown filter %q", key))
		}
		out = st.Filters
		out.Cuisine = append([]string{}, st.Filters.Cuisine...)
		return nil
	})
	return out, err
}

// ToggleCuisine 切換料理類別
func (s *Store) ToggleCuisine(ctx context.Context, name, cuisine string) (common.DietaryFilters, error) {
	cuisine = strings.TrimSpace(cuisine)
	if cuisine == "" {
		return common.DietaryFilters{}, common.ErrInvalidRequest.Wrap(errors.New("cuisine is required"))
	}
	var out common.DietaryFilters
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		st.Filters.ToggleCuisine(cuisine)
		out = st.Filters
		out.Cuisine = append([]string{}, st.Filters.Cuisine...)
		return nil
	})
	return out, err
}

// SetMaxPrepTime 設定準備時間上限，"any" 表示不限
func (s *Store) SetMaxPrepTime(ctx context.Context, name, minutes string) (common.DietaryFilters, error) {
	minutes = strings.TrimSpace(minutes)
	if minutes == "" {
		minutes = common.MaxPrepTimeAny
	}
	if err := validatePrepTime(minutes); err != nil {
		return common.DietaryFilters{}, err
	}
	var out common.DietaryFilters
	err := s.mutate(ctx, name, func(_ *entry, st *State) error {
		st.Filters.MaxPrepTime = minutes
		out = st.Filters
		return nil
	})
	return out, err
}

func validatePrepTime(v string) error {
	if v == common.MaxPrepTimeAny {
		return nil
	}
	if n, err := strconv.Atoi(v); err != nil || n <= 0 {
		return common.ErrInvalidRequest.Wrap(fmt.Errorf("invalid max prep time %q", v))
	}
	return nil
}
