package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.Status(http.StatusOK) }

func post(r http.Handler, body string) int {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestDeduplicator_BlocksRepeatWithinWindow(t *testing.T) {
	d := NewDeduplicator(time.Second)
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/x", d.Middleware(), okHandler)

	assert.Equal(t, http.StatusOK, post(r, `{"q":"soup"}`))
	assert.Equal(t, http.StatusTooManyRequests, post(r, `{"q":"soup"}`))
	assert.Equal(t, http.StatusOK, post(r, `{"q":"salad"}`), "different body is not a duplicate")

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, post(r, `{"q":"soup"}`))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/x", RateLimit(2, time.Hour), okHandler)

	assert.Equal(t, http.StatusOK, post(r, "{}"))
	assert.Equal(t, http.StatusOK, post(r, "{}"))
	assert.Equal(t, http.StatusTooManyRequests, post(r, "{}"))
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.POST("/x", BodySizeLimit(8), okHandler)

	assert.Equal(t, http.StatusOK, post(r, "{}"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(r, `{"too":"large"}`))
}

type staticAuth struct{ key string }

func (s staticAuth) Authorize(_ context.Context, name, key string) error {
	if name == "" || key != s.key {
		return common.ErrUnauthorized
	}
	return nil
}

func TestProfileAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", ProfileAuth(staticAuth{key: "k"}), func(c *gin.Context) {
		c.String(http.StatusOK, ProfileName(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderProfileName, " alice ")
	req.Header.Set(HeaderProfileKey, "k")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderProfileName, "alice")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInternalError)
}
