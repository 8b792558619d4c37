package recipe

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"culinai/internal/core/image"
	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImagesRequest JSON 上傳圖片，每張可為 data URI、純 base64 或 URL
type ImagesRequest struct {
	Images []string `json:"images" binding:"required"`
}

// getImageType 獲取圖片類型（用於日誌記錄）
func getImageType(img string) string {
	switch {
	case img == "":
		return "empty"
	case strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://"):
		return "url"
	case strings.HasPrefix(img, "data:image/"):
		if i := strings.Index(img, ";base64,"); i > 0 {
			return "data_uri_" + strings.TrimPrefix(img[:i], "data:image/")
		}
		return "invalid_data_uri"
	default:
		return "base64"
	}
}

// readImages 讀取 multipart 的 images 欄位或 JSON 的 images 陣列並正規化。
// 數量在讀取內容前就先檢查。
func readImages(c *gin.Context, images *image.Service) ([]common.InlineImage, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, common.ErrInvalidRequest.Wrap(err)
		}
		files := form.File["images"]
		if err := images.CheckBatch(len(files)); err != nil {
			return nil, err
		}
		data := make([][]byte, 0, len(files))
		for _, fh := range files {
			b, err := readFile(fh)
			if err != nil {
				return nil, common.ErrInvalidRequest.Wrap(err)
			}
			data = append(data, b)
		}
		return images.NormalizeFiles(data)
	}

	var req ImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, common.ErrInvalidRequest.Wrap(err)
	}
	if err := images.CheckBatch(len(req.Images)); err != nil {
		return nil, err
	}
	for i, img := range req.Images {
		common.LogDebug("收到圖片",
			zap.Int("index", i),
			zap.String("image_type", getImageType(img)),
			zap.Int("image_length", len(img)),
		)
	}
	return images.NormalizeBatch(c.Request.Context(), req.Images)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
