package recipe

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"culinai/internal/core/ai/provider"
	"culinai/internal/core/imagelookup"
	"culinai/internal/pkg/common"
)

// MediaService 單一食譜的 AI 插圖
type MediaService struct {
	generator provider.ImageGenerator
}

// NewMediaService generator 為 nil 時停用圖片生成
func NewMediaService(generator provider.ImageGenerator) *MediaService {
	return &MediaService{generator: generator}
}

// Enabled 是否可生成圖片
func (m *MediaService) Enabled() bool {
	return m != nil && m.generator != nil
}

// GenerateRecipeImage 以食譜標題生成照片，回傳 data URI
func (m *MediaService) GenerateRecipeImage(ctx context.Context, r *common.Recipe) (string, error) {
	if !m.Enabled() {
		return "", common.ErrServiceUnavailable.Wrap(fmt.Errorf("image generation is disabled"))
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return "", common.ErrInvalidRequest.Wrap(fmt.Errorf("recipe has no title"))
	}

	img, err := m.generator.GenerateImage(ctx, imagelookup.DishPhotoPrompt(title))
	if err != nil {
		return "", common.ErrServiceUnavailable.Wrap(err)
	}
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)), nil
}
