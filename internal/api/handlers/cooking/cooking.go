package cooking

import (
	"net/http"

	"culinai/internal/api/middleware"
	cookingService "culinai/internal/core/cooking"
	"culinai/internal/core/store"
	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 烹飪模式處理程序
type Handler struct {
	sessions *cookingService.Manager
	store    *store.Store
}

// NewHandler 創建烹飪模式處理程序
func NewHandler(sessions *cookingService.Manager, st *store.Store) *Handler {
	return &Handler{sessions: sessions, store: st}
}

// HandleStart 以食譜開始烹飪模式
func (h *Handler) HandleStart(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()

	r, err := h.store.SelectRecipe(ctx, profile, c.Param("recipeId"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	v, err := h.sessions.Start(ctx, profile, &r)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// HandleGet 目前步驟
func (h *Handler) HandleGet(c *gin.Context) {
	v, err := h.sessions.Get(middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// HandleNext 下一步
func (h *Handler) HandleNext(c *gin.Context) {
	v, err := h.sessions.Next(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// HandlePrevious 上一步
func (h *Handler) HandlePrevious(c *gin.Context) {
	v, err := h.sessions.Previous(c.Request.Context(), middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// HandleComplete 完成烹飪並寫入歷史紀錄
func (h *Handler) HandleComplete(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()

	v, err := h.sessions.Complete(profile, c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if err := h.store.CompleteCooking(ctx, profile, v.RecipeID); err != nil {
		middleware.Abort(c, err)
		return
	}
	if err := h.sessions.Delete(profile, v.ID); err != nil {
		common.LogWarn("結束烹飪模式失敗", zap.String("session_id", v.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, v)
}
