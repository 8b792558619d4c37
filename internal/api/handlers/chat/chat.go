package chat

import (
	"net/http"

	"culinai/internal/api/middleware"
	chatService "culinai/internal/core/chat"
	"culinai/internal/core/store"
	"culinai/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateRequest 建立對話
type CreateRequest struct {
	Language       common.Language `json:"language"`
	InitialMessage string          `json:"initial_message,omitempty"`
}

// MessageRequest 送出訊息
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SessionResponse 對話與逐字稿
type SessionResponse struct {
	ID         string               `json:"id"`
	Language   common.Language      `json:"language"`
	Transcript []common.ChatMessage `json:"transcript"`
}

// Handler 對話處理程序
type Handler struct {
	sessions *chatService.Manager
	store    *store.Store
}

// NewHandler 創建對話處理程序
func NewHandler(sessions *chatService.Manager, st *store.Store) *Handler {
	return &Handler{sessions: sessions, store: st}
}

func toResponse(s *chatService.Session) SessionResponse {
	return SessionResponse{ID: s.ID, Language: s.Language, Transcript: s.Transcript()}
}

// HandleCreate 建立對話，未指定語言時使用使用者設定
func (h *Handler) HandleCreate(c *gin.Context) {
	profile := middleware.ProfileName(c)
	ctx := c.Request.Context()

	var req CreateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
			return
		}
	}
	if req.Language == "" {
		st, err := h.store.Snapshot(ctx, profile)
		if err != nil {
			middleware.Abort(c, err)
			return
		}
		req.Language = st.Language
	}

	s, err := h.sessions.Create(ctx, profile, req.Language, req.InitialMessage)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(s))
}

// HandleGet 取得逐字稿
func (h *Handler) HandleGet(c *gin.Context) {
	s, err := h.sessions.Get(middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(s))
}

// HandleSend 送出訊息。模型失敗時逐字稿已帶有錯誤回覆，回應仍為 200。
func (h *Handler) HandleSend(c *gin.Context) {
	s, err := h.sessions.Get(middleware.ProfileName(c), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	reply, err := s.Send(c.Request.Context(), req.Text)
	if err != nil && !reply.IsError {
		middleware.Abort(c, err)
		return
	}
	if err != nil {
		common.LogWarn("對話回覆失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "transcript": s.Transcript()})
}

// HandleDelete 結束對話
func (h *Handler) HandleDelete(c *gin.Context) {
	if err := h.sessions.Delete(middleware.ProfileName(c), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
