package recipe

import (
	"context"
	"fmt"

	"culinai/internal/core/ai/provider"
	"culinai/internal/core/image"
	"culinai/internal/pkg/common"
)

// Invoker 模型閘道
type Invoker interface {
	Invoke(ctx context.Context, req *provider.Request) (string, error)
}

// Service 食譜服務基礎結構
type Service struct {
	gateway Invoker
}

// NewService 創建新的食譜服務
func NewService(gateway Invoker) *Service {
	return &Service{gateway: gateway}
}

// invokeJSON 以 JSON 模式送出請求
func (s *Service) invokeJSON(ctx context.Context, parts []provider.Part) (string, error) {
	return s.gateway.Invoke(ctx, &provider.Request{
		Parts:    parts,
		JSONMode: true,
	})
}

// imageParts 將正規化後的圖片轉為請求片段
func imageParts(images []common.InlineImage) ([]provider.Part, error) {
	parts := make([]provider.Part, 0, len(images)+1)
	for i, img := range images {
		data, err := image.Decode(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, provider.ImagePart(mime, data))
	}
	return parts, nil
}
