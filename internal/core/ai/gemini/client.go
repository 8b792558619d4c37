package gemini

import (
	"context"
	"fmt"
	"strings"

	"culinai/internal/core/ai/provider"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const providerName = "gemini"

// Client Gemini API 客戶端
type Client struct {
	genAI      *genai.Client
	imageModel string
}

// NewClient 創建新的 Gemini 客戶端，客戶端建立後唯讀，可安全地併發使用
func NewClient(ctx context.Context, apiKey, imageModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Client{genAI: c, imageModel: imageModel}, nil
}

// Name 提供者名稱
func (c *Client) Name() string {
	return providerName
}

// Generate 生成 AI 響應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	contents := buildContents(req)
	cfg := buildConfig(req)

	common.LogDebug("發送 Gemini 請求",
		zap.String("model", req.Model),
		zap.Int("images", req.ImageCount()),
		zap.Int("history", len(req.History)),
		zap.Bool("json_mode", req.JSONMode),
	)

	res, err := c.genAI.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generating content with %s: %w", req.Model, err)
	}

	out := &provider.Response{
		Text:  res.Text(),
		Model: req.Model,
	}
	if res.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(res.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// GenerateImage 以圖片模型生成食譜插圖
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*provider.Image, error) {
	res, err := c.genAI.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: generating image: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: empty image response")
	}
	for _, part := range res.Candidates[0].Content.Parts {
		b := part.InlineData
		if b == nil || len(b.Data) == 0 {
			continue
		}
		if strings.HasPrefix(b.MIMEType, "image/") {
			return &provider.Image{MIMEType: b.MIMEType, Data: b.Data}, nil
		}
	}
	return nil, fmt.Errorf("gemini: no image in response")
}

func buildContents(req *provider.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == provider.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	return contents
}

func buildConfig(req *provider.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}
