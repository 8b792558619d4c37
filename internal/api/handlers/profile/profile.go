package profile

import (
	"net/http"

	"culinai/internal/api/middleware"
	"culinai/internal/core/store"
	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRequest 登入請求
type LoginRequest struct {
	Name      string `json:"name" binding:"required"`
	SecretKey string `json:"secret_key" binding:"required"`
}

// SummaryResponse 使用者概要
type SummaryResponse struct {
	Name              string          `json:"name"`
	Language          common.Language `json:"language"`
	RecipeCount       int             `json:"recipe_count"`
	FavoritesCount    int             `json:"favorites_count"`
	HistoryCount      int             `json:"history_count"`
	ShoppingUnchecked int             `json:"shopping_unchecked"`
}

// LanguageRequest 設定回應語言
type LanguageRequest struct {
	Language common.Language `json:"language" binding:"required"`
}

// ShoppingRequest 加入購物清單
type ShoppingRequest struct {
	Names []string `json:"names" binding:"required"`
}

// PrepTimeRequest 準備時間上限
type PrepTimeRequest struct {
	MaxPrepTime string `json:"max_prep_time"`
}

// Handler 使用者狀態處理程序
type Handler struct {
	store *store.Store
}

// NewHandler 創建使用者狀態處理程序
func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

// HandleLogin 登入，首次使用的名稱會自動建立
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	p, err := h.store.Login(c.Request.Context(), req.Name, req.SecretKey)
	if err != nil {
		common.LogWarn("登入失敗", zap.String("profile", req.Name), zap.Error(err))
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": p.Name})
}

// HandleSummary 使用者概要
func (h *Handler) HandleSummary(c *gin.Context) {
	st, err := h.store.Snapshot(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Name:              st.Profile.Name,
		Language:          st.Language,
		RecipeCount:       len(st.Recipes),
		FavoritesCount:    len(st.Favorites),
		HistoryCount:      len(st.History),
		ShoppingUnchecked: store.UncheckedCount(st.Shopping),
	})
}

// HandleSetLanguage 設定回應語言
func (h *Handler) HandleSetLanguage(c *gin.Context) {
	var req LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	if err := h.store.SetLanguage(c.Request.Context(), middleware.ProfileName(c), req.Language); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": req.Language.OrDefault()})
}

// HandleFavorites 收藏列表
func (h *Handler) HandleFavorites(c *gin.Context) {
	recipes, err := h.store.Favorites(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// HandleToggleFavorite 切換收藏
func (h *Handler) HandleToggleFavorite(c *gin.Context) {
	fav, err := h.store.ToggleFavorite(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "favorite": fav})
}

// HandleHistory 煮過的食譜
func (h *Handler) HandleHistory(c *gin.Context) {
	recipes, err := h.store.History(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// HandleShoppingList 購物清單
func (h *Handler) HandleShoppingList(c *gin.Context) {
	items, err := h.store.ShoppingList(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "unchecked": store.UncheckedCount(items)})
}

// HandleAddShopping 加入購物項目
func (h *Handler) HandleAddShopping(c *gin.Context) {
	var req ShoppingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	items, err := h.store.AddShoppingItems(c.Request.Context(), middleware.ProfileName(c), req.Names)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": items})
}

// HandleToggleShopping 切換勾選
func (h *Handler) HandleToggleShopping(c *gin.Context) {
	item, err := h.store.ToggleShoppingItem(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleRemoveShopping 移除購物項目
func (h *Handler) HandleRemoveShopping(c *gin.Context) {
	if err := h.store.RemoveShoppingItem(c.Request.Context(), middleware.ProfileName(c), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleFilters 目前的篩選條件
func (h *Handler) HandleFilters(c *gin.Context) {
	f, err := h.store.Filters(c.Request.Context(), middleware.ProfileName(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// HandleSetFilters 整組取代篩選條件
func (h *Handler) HandleSetFilters(c *gin.Context) {
	var req common.DietaryFilters
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	f, err := h.store.SetFilters(c.Request.Context(), middleware.ProfileName(c), req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// HandleToggleFilter 切換布林條件
func (h *Handler) HandleToggleFilter(c *gin.Context) {
	f, err := h.store.ToggleFilter(c.Request.Context(), middleware.ProfileName(c), c.Param("key"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// HandleToggleCuisine 切換料理類別
func (h *Handler) HandleToggleCuisine(c *gin.Context) {
	f, err := h.store.ToggleCuisine(c.Request.Context(), middleware.ProfileName(c), c.Param("name"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// HandleSetPrepTime 設定準備時間上限
func (h *Handler) HandleSetPrepTime(c *gin.Context) {
	var req PrepTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	f, err := h.store.SetMaxPrepTime(c.Request.Context(), middleware.ProfileName(c), req.MaxPrepTime)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
