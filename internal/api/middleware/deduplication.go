package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"time"

	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 擋下視窗時間內重複送出的 POST 請求，例如連點兩次搜尋
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]time.Time
}

// NewDeduplicator 創建去重器，window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window:   window,
		now:      time.Now,
		requests: make(map[string]time.Time),
	}
}

// seen 記錄指紋，視窗內已出現過時回傳 true；順便清掉過期紀錄
func (d *Deduplicator) seen(fingerprint string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
		}
	}
	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Middleware 請求去重中間件，指紋包含使用者、路徑與請求體雜湊
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		// multipart 圖片內容較大，只以長度區分
		bodyHash := ""
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				Abort(c, common.ErrInvalidRequest.Wrap(err))
				return
			}
			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		fingerprint := strings.Join([]string{
			c.GetHeader(HeaderProfileName),
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.Header.Get("Content-Length"),
			bodyHash,
		}, ":")

		if d.seen(fingerprint) {
			common.LogInfo("重複請求已忽略",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			Abort(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
