package decoder

import (
	"regexp"
	"strings"

	"culinai/internal/infrastructure/metrics"
	"culinai/internal/pkg/common"

	"go.uber.org/zap"
)

// fencePattern 匹配 ```json ... ``` 或單純 ``` ... ```
var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\s*```$")

// Clean 移除 markdown code fence 與前後空白，並補上被截斷陣列的結尾括號
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else {
		// 只有開頭 fence（回應被截斷）
		if strings.HasPrefix(text, "```") {
			text = strings.TrimPrefix(text, "```")
			if i := strings.IndexByte(text, '\n'); i >= 0 && !strings.ContainsAny(text[:i], "[{") {
				text = text[i+1:]
			}
			text = strings.TrimSpace(text)
		}
	}

	// 只修補缺少的最外層 ]，不嘗試平衡巢狀括號
	if strings.HasPrefix(text, "[") && !strings.HasSuffix(text, "]") {
		text += "]"
	}
	return text
}

// Decode 解碼模型輸出。無法解析時記錄錯誤並回傳空陣列，從不回傳錯誤。
func Decode(raw string) interface{} {
	text := Clean(raw)

	var v interface{}
	if err := common.ParseJSON(text, &v); err != nil {
		metrics.RecordDecodeFailure()
		common.LogWarn("模型回應 JSON 解析失敗",
			zap.Error(err),
			zap.Int("raw_length", len(raw)),
		)
		return []interface{}{}
	}
	return v
}

// DecodeArray 解碼為陣列。物件只在帶有 wrapperKeys 中的陣列欄位時拆開，
// 其他物件包成一個元素的陣列；其他型別視為空
func DecodeArray(raw string, wrapperKeys ...string) []interface{} {
	switch v := Decode(raw).(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		// 部分模型會包一層 {"recipes": [...]}
		for _, key := range wrapperKeys {
			if inner, ok := v[key].([]interface{}); ok {
				return inner
			}
		}
		return []interface{}{v}
	default:
		return []interface{}{}
	}
}
