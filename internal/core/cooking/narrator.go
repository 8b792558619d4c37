package cooking

import (
	"context"
	"fmt"
	"strings"

	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// 朗讀方式
const (
	NarratorNone = "none"
	NarratorLog  = "log"
)

// Narrator 朗讀步驟
type Narrator interface {
	Speak(ctx context.Context, text string) error
}

var (
	_ Narrator = NoOpNarrator{}
	_ Narrator = LogNarrator{}
)

// NoOpNarrator 語音停用時使用，只記錄將要朗讀的內容
type NoOpNarrator struct{}

// Speak 不做任何事
func (NoOpNarrator) Speak(_ context.Context, text string) error {
	common.LogDebug("narration disabled", zap.Int("text_length", len(text)))
	return nil
}

// LogNarrator 把朗讀內容寫進日誌，供沒有音訊裝置的環境追蹤烹飪進度
type LogNarrator struct{}

// Speak 記錄朗讀文字
func (LogNarrator) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	common.LogInfo("朗讀步驟", zap.String("text", text))
	return nil
}

// NewNarrator 依名稱建立朗讀方式
func NewNarrator(kind string) (Narrator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", NarratorNone:
		return NoOpNarrator{}, nil
	case NarratorLog:
		return LogNarrator{}, nil
	default:
		return nil, fmt.Errorf("unknown narrator %q", kind)
	}
}
