package openrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	providerName   = "openrouter"
	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Client OpenRouter API 客戶端
type Client struct {
	client    *resty.Client
	maxTokens int
}

// ContentPart 多模態內容片段
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 圖片 URL（可為 data URI）
type ImageURL struct {
	URL string `json:"url"`
}

// Message 消息結構，content 為字串或 []ContentPart
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ResponseFormat 回應格式
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request 表示 API 請求
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// UsageInfo 使用量信息
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(apiKey, baseURL string, maxTokens int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://culinai.app").
		SetHeader("X-Title", "CulinAI").
		SetTimeout(90 * time.Second)

	return &Client{client: client, maxTokens: maxTokens}
}

// Name 提供者名稱
func (c *Client) Name() string {
	return providerName
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := c.buildRequest(req)

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("images", req.ImageCount()),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("OpenRouter API error (status %d): %s", resp.StatusCode(), sanitizeResponse(resp.Body()))
	}

	var result Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	return &provider.Response{
		Text:  result.Choices[0].Message.Content,
		Model: req.Model,
		Usage: provider.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) buildRequest(req *provider.Request) *Request {
	messages := make([]Message, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemInstruction})
	}
	for _, m := range req.History {
		role := "user"
		if m.Role == provider.RoleModel {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: m.Text})
	}

	content := make([]ContentPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			url := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
			content = append(content, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}})
			continue
		}
		content = append(content, ContentPart{Type: "text", Text: p.Text})
	}
	messages = append(messages, Message{Role: "user", Content: content})

	out := &Request{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
	}
	if req.JSONMode {
		out.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return out
}

// sanitizeResponse 清理響應內容，移除所有圖片數據
func sanitizeResponse(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(body) > 100 && strings.Contains(s, "base64") {
		return "[BASE64_DATA_REMOVED]"
	}

	var apiErr struct {
		Error struct {
			Message string      `json:"message"`
			Code    interface{} `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
