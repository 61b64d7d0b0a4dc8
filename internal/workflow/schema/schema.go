// Package schema 校验各阶段模型输出的结构约束，并给出 response_format 使用的 JSON Schema。
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Issue 单条违规
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError 列出全部违规字段
type ValidationError struct {
	Stage  string  `json:"stage"`
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Path+": "+is.Message)
	}
	return fmt.Sprintf("Invalid %s Agent output: %s", e.Stage, strings.Join(parts, "; "))
}

// toObject 将类型化值、map 或 JSON 字节统一转为 map
func toObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("expected object, got null")
	case map[string]any:
		return v, nil
	case []byte:
		return decodeObject(v)
	case json.RawMessage:
		return decodeObject(v)
	case string:
		return decodeObject([]byte(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
		return decodeObject(b)
	}
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", out)
	}
	return m, nil
}

// decodeInto 通过 JSON 往返把已校验的 map 填入结构体
func decodeInto(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// checker 收集字段违规
type checker struct {
	issues []Issue
}

func (c *checker) add(path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) err(stage string) error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Stage: stage, Issues: c.issues}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// str 校验字符串长度(按 rune 计)，max<=0 表示不限。optional 时缺失不报错
func (c *checker) str(m map[string]any, base, key string, min, max int, optional bool) {
	path := joinPath(base, key)
	v, ok := m[key]
	if !ok || v == nil {
		if !optional {
			c.add(path, "Required")
		}
		return
	}
	s, ok := v.(string)
	if !ok {
		c.add(path, "Expected string, received %s", typeName(v))
		return
	}
	n := utf8.RuneCountInString(s)
	if n < min {
		c.add(path, "String must contain at least %d character(s)", min)
	}
	if max > 0 && n > max {
		c.add(path, "String must contain at most %d character(s)", max)
	}
}

// integer 校验整数范围，返回值与是否有效
func (c *checker) integer(m map[string]any, base, key string, min, max int) (int, bool) {
	path := joinPath(base, key)
	v, ok := m[key]
	if !ok || v == nil {
		c.add(path, "Required")
		return 0, false
	}
	n, ok := asInt(v)
	if !ok {
		c.add(path, "Expected integer, received %s", typeName(v))
		return 0, false
	}
	if n < min {
		c.add(path, "Number must be greater than or equal to %d", min)
		return n, false
	}
	if n > max {
		c.add(path, "Number must be less than or equal to %d", max)
		return n, false
	}
	return n, true
}

func (c *checker) boolean(m map[string]any, base, key string) {
	v, ok := m[key]
	if !ok || v == nil {
		return
	}
	if _, ok := v.(bool); !ok {
		c.add(joinPath(base, key), "Expected boolean, received %s", typeName(v))
	}
}

// array 校验数组基数；optional 时缺失返回 nil
func (c *checker) array(m map[string]any, base, key string, min, max int, optional bool) []any {
	path := joinPath(base, key)
	v, ok := m[key]
	if !ok || v == nil {
		if !optional {
			c.add(path, "Required")
		}
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		c.add(path, "Expected array, received %s", typeName(v))
		return nil
	}
	if len(arr) < min {
		c.add(path, "Array must contain at least %d element(s)", min)
	}
	if max > 0 && len(arr) > max {
		c.add(path, "Array must contain at most %d element(s)", max)
	}
	return arr
}

func (c *checker) object(v any, path string) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.add(path, "Expected object, received %s", typeName(v))
	}
	return obj, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// withDefaults 缺失字段写入默认值，不修改调用方的 map
func withDefaults(m map[string]any, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(m)+len(defaults))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range defaults {
		if cur, ok := out[k]; !ok || cur == nil {
			out[k] = v
		}
	}
	return out
}

func inputError(stage string, err error) error {
	return &ValidationError{Stage: stage, Issues: []Issue{{Path: "(root)", Message: err.Error()}}}
}
