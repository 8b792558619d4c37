package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderProfileName = "X-Profile-Name"
	HeaderProfileKey  = "X-Profile-Key"

	profileContextKey = "profile"
)

// Authorizer 驗證使用者名稱與密鑰
type Authorizer interface {
	Authorize(ctx context.Context, name, secretKey string) error
}

// ProfileAuth 要求請求帶有已登入的使用者標頭
func ProfileAuth(auth Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(HeaderProfileName))
		key := c.GetHeader(HeaderProfileKey)
		if err := auth.Authorize(c.Request.Context(), name, key); err != nil {
			Abort(c, err)
			return
		}
		c.Set(profileContextKey, name)
		c.Next()
	}
}

// ProfileName 目前請求的使用者名稱，未驗證時為空字串
func ProfileName(c *gin.Context) string {
	return c.GetString(profileContextKey)
}
