package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError 模型输出无法解析为 JSON 对象
type ParseError struct {
	Stage   string
	Reason  string
	Preview string
}

func (e *ParseError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("malformed model output: %s (preview: %q)", e.Reason, e.Preview)
	}
	return fmt.Sprintf("malformed %s output: %s (preview: %q)", e.Stage, e.Reason, e.Preview)
}

const previewRunes = 120

var (
	invisibleReplacer = strings.NewReplacer("\ufeff", "", "\u200b", "", "\u200c", "", "\u200d", "", "\u2060", "")
	fencePattern      = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingComma     = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseObject 依次尝试直接解析、解开二次编码、截取代码块或最外层括号、修复尾逗号，最终要求得到对象
func ParseObject(text string) (map[string]any, error) {
	return ParseStageObject("", text)
}

// ParseStageObject 同 ParseObject，错误中带上阶段名
func ParseStageObject(stage, text string) (map[string]any, error) {
	raw := strings.TrimSpace(invisibleReplacer.Replace(text))
	if raw == "" {
		return nil, &ParseError{Stage: stage, Reason: "empty output"}
	}

	v, ok := decode(raw)
	if !ok {
		extracted := extract(raw)
		v, ok = decode(extracted)
		if !ok {
			v, ok = decode(trailingComma.ReplaceAllString(extracted, "$1"))
		}
	}
	if !ok {
		return nil, &ParseError{Stage: stage, Reason: "invalid json", Preview: TruncateByRunes(raw, previewRunes)}
	}

	obj, isObj := v.(map[string]any)
	if !isObj {
		return nil, &ParseError{Stage: stage, Reason: fmt.Sprintf("expected object, got %s", kindOf(v)), Preview: TruncateByRunes(raw, previewRunes)}
	}
	return obj, nil
}

// decode 解析 JSON，字符串结果视作二次编码再解一层
func decode(s string) (any, bool) {
	var v any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return nil, false
	}
	if inner, isStr := v.(string); isStr {
		inner = strings.TrimSpace(inner)
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			if nested, ok := decode(inner); ok {
				return nested, true
			}
		}
	}
	return v, true
}

func extract(raw string) string {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ExtractJSONObject(raw)
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ExtractJSONObject 截取文本中第一个 JSON 对象或数组的最外层括号范围
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')

	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start, end = objStart, strings.LastIndexByte(raw, '}')
	case arrStart >= 0:
		start, end = arrStart, strings.LastIndexByte(raw, ']')
	}
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// CompactJSON 将值序列化为紧凑 JSON，失败时返回 "null"
func CompactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return string(b)
	}
	return buf.String()
}
