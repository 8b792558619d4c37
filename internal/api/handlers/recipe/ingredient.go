package recipe

import (
	"net/http"

	"culinai/internal/api/middleware"
	"culinai/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IngredientsResponse 食材識別結果
type IngredientsResponse struct {
	Ingredients []string `json:"ingredients"`
}

// HandleScan 照片流程：識別食材並生成食譜
func (h *Handler) HandleScan(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()
	requestID := requestid.Get(c)

	imgs, err := readImages(c, h.images)
	if err != nil {
		common.LogWarn("圖片讀取失敗", zap.String("request_id", requestID), zap.Error(err))
		middleware.Abort(c, err)
		return
	}
	filters, language, err := h.preferences(ctx, profile, nil, common.Language(c.Query("language")))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	token, err := h.store.BeginRequest(ctx, profile)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	common.LogInfo("開始處理照片搜尋請求",
		zap.String("request_id", requestID),
		zap.String("profile", profile),
		zap.Int("images", len(imgs)),
	)

	result, err := h.pipeline.Scan(ctx, imgs, filters, language)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if err := h.apply(ctx, profile, token, result.Recipes); err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleAnalyze 只識別食材
func (h *Handler) HandleAnalyze(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()

	imgs, err := readImages(c, h.images)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	_, language, err := h.preferences(ctx, profile, nil, common.Language(c.Query("language")))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	names := h.pipeline.Ingredients().ExtractIngredients(ctx, imgs, language)
	common.LogInfo("Successfully identified ingredients",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("ingredients_count", len(names)),
	)
	c.JSON(http.StatusOK, IngredientsResponse{Ingredients: names})
}
