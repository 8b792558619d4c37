package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"culinai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

const jpegQuality = 85

// Options 圖片正規化設定
type Options struct {
	MaxSizeBytes int64
	MaxBatch     int
	// MaxDimension 長邊上限，0 表示不縮放
	MaxDimension int
	// AllowPrivateHosts 允許下載內部網路位址的圖片
	AllowPrivateHosts bool
}

var errBlockedHost = errors.New("image host is not publicly routable")

// cgnat 100.64.0.0/10
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// isPublicIP 只允許公開的單播位址
func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || cgnat.Contains(ip))
}

// publicOnlyTransport 在連線前檢查解析後的位址，重新導向也一樣受限
func publicOnlyTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if !isPublicIP(net.ParseIP(host)) {
				return fmt.Errorf("%w: %s", errBlockedHost, host)
			}
			return nil
		},
	}
	return &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Service 圖片正規化服務，將上傳的圖片轉為可直接送往模型的 JPEG base64
type Service struct {
	opts   Options
	client *resty.Client
}

// NewService 創建新的圖片處理服務
func NewService(opts Options) *Service {
	client := resty.New().SetTimeout(30 * time.Second)
	if !opts.AllowPrivateHosts {
		client.SetTransport(publicOnlyTransport())
	}
	return &Service{
		opts:   opts,
		client: client,
	}
}

// MaxBatch 單次分析允許的圖片數量
func (s *Service) MaxBatch() int {
	return s.opts.MaxBatch
}

// CheckBatch 在任何網路呼叫前檢查批次大小
func (s *Service) CheckBatch(n int) error {
	if n == 0 {
		return common.ErrInvalidRequest.Wrap(fmt.Errorf("no images supplied"))
	}
	if s.opts.MaxBatch > 0 && n > s.opts.MaxBatch {
		return common.ErrImageBatchTooLarge.Wrap(fmt.Errorf("got %d images, at most %d allowed", n, s.opts.MaxBatch))
	}
	return nil
}

// NormalizeBatch 正規化一批圖片（data URI、純 base64 或 URL）
func (s *Service) NormalizeBatch(ctx context.Context, inputs []string) ([]common.InlineImage, error) {
	if err := s.CheckBatch(len(inputs)); err != nil {
		return nil, err
	}
	out := make([]common.InlineImage, 0, len(inputs))
	for i, in := range inputs {
		img, err := s.Normalize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		out = append(out, img)
	}
	return out, nil
}

// NormalizeFiles 正規化一批原始檔案內容
func (s *Service) NormalizeFiles(files [][]byte) ([]common.InlineImage, error) {
	if err := s.CheckBatch(len(files)); err != nil {
		return nil, err
	}
	out := make([]common.InlineImage, 0, len(files))
	for i, f := range files {
		img, err := s.NormalizeBytes(f)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		out = append(out, img)
	}
	return out, nil
}

// Normalize 處理單張圖片
func (s *Service) Normalize(ctx context.Context, imageData string) (common.InlineImage, error) {
	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		return common.InlineImage{}, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("empty image data"))
	}

	if strings.HasPrefix(imageData, "http://") || strings.HasPrefix(imageData, "https://") {
		data, err := s.download(ctx, imageData)
		if err != nil {
			return common.InlineImage{}, err
		}
		return s.NormalizeBytes(data)
	}

	payload := imageData
	if strings.HasPrefix(imageData, "data:") {
		if !strings.HasPrefix(imageData, "data:image/") {
			return common.InlineImage{}, common.ErrInvalidImageType
		}
		parts := strings.SplitN(imageData, ",", 2)
		if len(parts) != 2 {
			return common.InlineImage{}, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("invalid data URI"))
		}
		payload = parts[1]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return common.InlineImage{}, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return s.NormalizeBytes(decoded)
}

// NormalizeBytes 驗證大小與格式，縮放後重新編碼為 JPEG
func (s *Service) NormalizeBytes(data []byte) (common.InlineImage, error) {
	if len(data) == 0 {
		return common.InlineImage{}, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("empty image data"))
	}
	if s.opts.MaxSizeBytes > 0 && int64(len(data)) > s.opts.MaxSizeBytes {
		return common.InlineImage{}, common.ErrInvalidImageSize.Wrap(
			fmt.Errorf("image size exceeds maximum limit of %d bytes", s.opts.MaxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.InlineImage{}, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return common.InlineImage{}, common.ErrInvalidImageType.Wrap(fmt.Errorf("unsupported image format: %s", format))
	}

	img = s.resize(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return common.InlineImage{}, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	common.LogDebug("圖片已正規化",
		zap.String("format", format),
		zap.Int("original_bytes", len(data)),
		zap.Int("jpeg_bytes", buf.Len()),
	)

	return common.InlineImage{
		MIMEType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// resize 長邊超過上限時等比例縮小
func (s *Service) resize(img image.Image) image.Image {
	limit := s.opts.MaxDimension
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}

	nw, nh := limit, h*limit/w
	if h > w {
		nw, nh = w*limit/h, limit
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if errors.Is(err, errBlockedHost) {
			return nil, common.ErrInvalidRequest.Wrap(err)
		}
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// Decode 將 InlineImage 還原為位元組
func Decode(img common.InlineImage) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline image: %w", err)
	}
	return data, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
