package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService() *Service {
	return NewService(Options{MaxSizeBytes: 1 << 20, MaxBatch: 5, MaxDimension: 64})
}

func TestNormalize_DataURI(t *testing.T) {
	s := newTestService()
	raw := pngBytes(t, 10, 10)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	img, err := s.Normalize(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	decoded, err := Decode(img)
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
}

func TestNormalize_RawBase64(t *testing.T) {
	s := newTestService()
	img, err := s.Normalize(context.Background(), base64.StdEncoding.EncodeToString(pngBytes(t, 4, 4)))
	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)
}

func TestNormalize_URL(t *testing.T) {
	raw := pngBytes(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	s := NewService(Options{MaxSizeBytes: 1 << 20, MaxBatch: 5, AllowPrivateHosts: true})
	img, err := s.Normalize(context.Background(), srv.URL+"/fridge.png")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
}

func TestNormalize_URLRejectsInternalHosts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestService().Normalize(context.Background(), srv.URL+"/admin")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.Zero(t, hits.Load())
}

func TestIsPublicIP(t *testing.T) {
	for _, addr := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "169.254.169.254", "100.64.0.1", "0.0.0.0", "::1", "fe80::1", "fd00::1"} {
		assert.False(t, isPublicIP(net.ParseIP(addr)), addr)
	}
	for _, addr := range []string{"8.8.8.8", "151.101.1.69", "2606:4700::1111"} {
		assert.True(t, isPublicIP(net.ParseIP(addr)), addr)
	}
	assert.False(t, isPublicIP(nil))
}

func TestNormalize_Rejects(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Normalize(ctx, "")
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)

	_, err = s.Normalize(ctx, "data:text/plain;base64,aGVsbG8=")
	assert.ErrorIs(t, err, common.ErrInvalidImageType)

	_, err = s.Normalize(ctx, "!!!not base64!!!")
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)

	_, err = s.Normalize(ctx, base64.StdEncoding.EncodeToString([]byte("hello world")))
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)
}

func TestNormalizeBytes_SizeLimit(t *testing.T) {
	s := NewService(Options{MaxSizeBytes: 10, MaxBatch: 5})
	_, err := s.NormalizeBytes(pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, common.ErrInvalidImageSize)
}

func TestNormalizeBytes_Downscales(t *testing.T) {
	s := NewService(Options{MaxSizeBytes: 1 << 20, MaxBatch: 5, MaxDimension: 32})
	img, err := s.NormalizeBytes(pngBytes(t, 128, 64))
	require.NoError(t, err)

	decoded, err := Decode(img)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestNormalizeBatch_Cap(t *testing.T) {
	s := newTestService()
	uri := base64.StdEncoding.EncodeToString(pngBytes(t, 2, 2))

	_, err := s.NormalizeBatch(context.Background(), []string{uri, uri, uri, uri, uri, uri})
	assert.ErrorIs(t, err, common.ErrImageBatchTooLarge)

	_, err = s.NormalizeBatch(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)

	imgs, err := s.NormalizeBatch(context.Background(), []string{uri, uri, uri, uri, uri})
	require.NoError(t, err)
	assert.Len(t, imgs, 5)
}

func TestNormalizeFiles_Cap(t *testing.T) {
	s := newTestService()
	f := pngBytes(t, 2, 2)
	_, err := s.NormalizeFiles([][]byte{f, f, f, f, f, f})
	assert.ErrorIs(t, err, common.ErrImageBatchTooLarge)

	imgs, err := s.NormalizeFiles([][]byte{f})
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
}
