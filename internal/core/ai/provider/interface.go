package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Role 對話角色
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part 請求內容片段，文字或內嵌圖片擇一
type Part struct {
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// IsImage 是否為內嵌圖片
func (p Part) IsImage() bool {
	return len(p.Data) > 0
}

// TextPart 建立文字片段
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart 建立內嵌圖片片段
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// Message 對話歷史中的一則訊息
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Model             string    `json:"model"`
	Parts             []Part    `json:"parts"`
	SystemInstruction string    `json:"system_instruction,omitempty"`
	History           []Message `json:"history,omitempty"`
	JSONMode          bool      `json:"json_mode,omitempty"`
}

// CacheKey 與模型無關的請求雜湊，同一請求在不同候選模型間共用快取
func (r *Request) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(r.SystemInstruction))
	h.Write([]byte{0})
	for _, m := range r.History {
		h.Write([]byte(m.Role))
		h.Write([]byte(m.Text))
		h.Write([]byte{0})
	}
	for _, p := range r.Parts {
		h.Write([]byte(p.Text))
		h.Write([]byte(p.MIMEType))
		h.Write(p.Data)
		h.Write([]byte{0})
	}
	if r.JSONMode {
		h.Write([]byte("json"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PromptText 串接所有文字片段
func (r *Request) PromptText() string {
	var texts []string
	for _, p := range r.Parts {
		if !p.IsImage() && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ImageCount 內嵌圖片數量
func (r *Request) ImageCount() int {
	n := 0
	for _, p := range r.Parts {
		if p.IsImage() {
			n++
		}
	}
	return n
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Name 提供者名稱，用於日誌與指標
	Name() string

	// Generate 以 req.Model 指定的模型生成回應
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Image 生成的圖片
type Image struct {
	MIMEType string
	Data     []byte
}

// ImageGenerator 文字生成圖片
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}
