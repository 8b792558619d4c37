package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 收集器在套件載入時註冊一次
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culinai_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "culinai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culinai_ai_requests_total",
			Help: "Total number of model attempts made by the gateway",
		},
		[]string{"provider", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "culinai_ai_request_duration_seconds",
			Help:    "Model attempt duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"provider", "model"},
	)
	gatewayExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "culinai_gateway_exhausted_total",
			Help: "Requests for which every model candidate failed",
		},
	)

	cacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culinai_cache_operations_total",
			Help: "Gateway cache lookups by result",
		},
		[]string{"result"},
	)

	decodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "culinai_decode_failures_total",
			Help: "Model responses that could not be decoded as JSON",
		},
	)

	recipesSynthesized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "culinai_recipes_synthesized_total",
			Help: "Recipes returned to callers",
		},
	)
	imageLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culinai_image_lookups_total",
			Help: "Recipe illustration lookups by strategy and result",
		},
		[]string{"strategy", "result"},
	)
)

// RecordAIAttempt 記錄一次模型候選嘗試
func RecordAIAttempt(provider, model string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	aiRequestsTotal.WithLabelValues(provider, model, status).Inc()
	aiRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordGatewayExhausted 所有候選皆失敗
func RecordGatewayExhausted() {
	gatewayExhaustedTotal.Inc()
}

// RecordCache 記錄快取命中或未命中
func RecordCache(hit bool) {
	if hit {
		cacheOperations.WithLabelValues("hit").Inc()
		return
	}
	cacheOperations.WithLabelValues("miss").Inc()
}

// RecordDecodeFailure 記錄解碼失敗
func RecordDecodeFailure() {
	decodeFailures.Inc()
}

// RecordRecipes 記錄回傳的食譜數量
func RecordRecipes(n int) {
	recipesSynthesized.Add(float64(n))
}

// RecordImageLookup 記錄插圖查詢
func RecordImageLookup(strategy string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	imageLookups.WithLabelValues(strategy, result).Inc()
}

// Middleware HTTP 請求指標
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 端點
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
