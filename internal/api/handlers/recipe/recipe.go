package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"culinai/internal/api/middleware"
	"culinai/internal/core/image"
	recipeService "culinai/internal/core/recipe"
	"culinai/internal/core/store"
	"culinai/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchRequest 文字搜尋食譜
type SearchRequest struct {
	Query    string                 `json:"query" binding:"required"`
	Filters  *common.DietaryFilters `json:"filters,omitempty"`  // 未提供時使用已儲存的篩選條件
	Language common.Language        `json:"language,omitempty"` // 提供時同時更新使用者設定
}

// RecipesResponse 食譜列表
type RecipesResponse struct {
	Recipes []common.Recipe `json:"recipes"`
}

// Handler 食譜處理程序
type Handler struct {
	pipeline *recipeService.Pipeline
	media    *recipeService.MediaService
	images   *image.Service
	store    *store.Store
}

// NewHandler 創建新的食譜處理程序
func NewHandler(pipeline *recipeService.Pipeline, media *recipeService.MediaService, images *image.Service, st *store.Store) *Handler {
	return &Handler{
		pipeline: pipeline,
		media:    media,
		images:   images,
		store:    st,
	}
}

// preferences 取得本次請求使用的篩選條件與語言
func (h *Handler) preferences(ctx context.Context, profile string, filters *common.DietaryFilters, language common.Language) (common.DietaryFilters, common.Language, error) {
	st, err := h.store.Snapshot(ctx, profile)
	if err != nil {
		return common.DietaryFilters{}, "", err
	}
	if language != "" && language != st.Language {
		if err := h.store.SetLanguage(ctx, profile, language); err != nil {
			return common.DietaryFilters{}, "", err
		}
		st.Language = language
	}
	if filters == nil {
		return st.Filters, st.Language, nil
	}
	if filters.Cuisine == nil {
		filters.Cuisine = []string{}
	}
	if strings.TrimSpace(filters.MaxPrepTime) == "" {
		filters.MaxPrepTime = common.MaxPrepTimeAny
	}
	return *filters, st.Language, nil
}

// apply 存入結果；已被較新的請求取代時回傳 ErrStaleResult
func (h *Handler) apply(ctx context.Context, profile string, token uint64, recipes []common.Recipe) error {
	err := h.store.ApplyResults(ctx, profile, token, recipes)
	if errors.Is(err, common.ErrStaleResult) {
		common.LogInfo("搜尋結果已過期", zap.String("profile", profile), zap.Uint64("token", token))
	}
	return err
}

// HandleSearch 以文字查詢生成食譜
func (h *Handler) HandleSearch(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(errors.New("query is required")))
		return
	}

	filters, language, err := h.preferences(ctx, profile, req.Filters, req.Language)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	token, err := h.store.BeginRequest(ctx, profile)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	common.LogInfo("開始處理食譜搜尋請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("profile", profile),
		zap.String("language", string(language)),
	)

	recipes, err := h.pipeline.Search(ctx, strings.TrimSpace(req.Query), filters, language)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if err := h.apply(ctx, profile, token, recipes); err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, RecipesResponse{Recipes: recipes})
}

// HandleList 目前的食譜，可依 prep_time / calories / protein 排序
func (h *Handler) HandleList(c *gin.Context) {
	recipes, err := h.store.Recipes(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if sortBy := c.Query("sort"); sortBy != "" {
		key, ok := recipeService.ParseSortKey(sortBy)
		if !ok {
			middleware.Abort(c, common.ErrInvalidRequest.Wrap(errors.New("sort must be prep_time, calories or protein")))
			return
		}
		recipes = recipeService.SortRecipes(recipes, key)
	}
	c.JSON(http.StatusOK, RecipesResponse{Recipes: recipes})
}

// HandleGet 取得單一食譜並設為目前選取
func (h *Handler) HandleGet(c *gin.Context) {
	r, err := h.store.SelectRecipe(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleUploadImages 為食譜附加使用者照片
func (h *Handler) HandleUploadImages(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.store.Recipe(ctx, profile, id); err != nil {
		middleware.Abort(c, err)
		return
	}
	imgs, err := readImages(c, h.images)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	uris := make([]string, len(imgs))
	for i, img := range imgs {
		uris[i] = img.DataURI()
	}

	r, err := h.store.AddUserImage(ctx, profile, id, uris...)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleGenerateImage 以 AI 生成食譜插圖
func (h *Handler) HandleGenerateImage(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	r, err := h.store.Recipe(ctx, profile, id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	uri, err := h.media.GenerateRecipeImage(ctx, &r)
	if err != nil {
		common.LogError("食譜插圖生成失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.String("recipe_id", id),
			zap.Error(err),
		)
		middleware.Abort(c, err)
		return
	}
	updated, err := h.store.SetRecipeImage(ctx, profile, id, uri)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleMarkCooked 標記已煮過
func (h *Handler) HandleMarkCooked(c *gin.Context) {
	r, err := h.store.MarkCooked(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleAddToShopping 將食譜食材加入購物清單
func (h *Handler) HandleAddToShopping(c *gin.Context) {
	items, err := h.store.AddRecipeToShopping(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
