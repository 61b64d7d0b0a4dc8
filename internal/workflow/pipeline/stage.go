package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"logitoon-ai-api/internal/workflow/node"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/schema"
)

// Stage 流水线中的一个阶段
type Stage interface {
	Name() string
	ProgressMessage() string
	Run(ctx context.Context, in Context, call AICallFunc) Context
}

const (
	NameLogic  = "Logic"
	NameStory  = "Story"
	NameVisual = "Visual"
	NameCritic = "Critic"
	// NameLibrary 命中已生成漫画，不属于流水线阶段
	NameLibrary = "Library"
)

var progressMessages = map[string]map[string]string{
	"en": {
		NameLogic:   "Analyzing topic...",
		NameStory:   "Writing narrative...",
		NameVisual:  "Directing visuals...",
		NameCritic:  "Reviewing panel flow...",
		NameLibrary: "Found a matching comic in the library...",
	},
	"ko": {
		NameLogic:   "주제를 분석하고 있어요...",
		NameStory:   "이야기를 쓰고 있어요...",
		NameVisual:  "장면을 연출하고 있어요...",
		NameCritic:  "장면 흐름을 검토하고 있어요...",
		NameLibrary: "이미 만든 만화를 찾았어요...",
	},
	"ja": {
		NameLogic:   "テーマを分析しています...",
		NameStory:   "ストーリーを書いています...",
		NameVisual:  "ビジュアルを演出しています...",
		NameCritic:  "コマの流れを確認しています...",
		NameLibrary: "ライブラリで同じ漫画を見つけました...",
	},
}

// ProgressMessage 返回指定语言的阶段提示，未知语言回退英文
func ProgressMessage(stage, language string) string {
	if msgs, ok := progressMessages[strings.ToLower(language)]; ok {
		if m, ok := msgs[stage]; ok {
			return m
		}
	}
	return progressMessages["en"][stage]
}

// stageBase 各阶段共享的提示词来源
type stageBase struct {
	prompts *prompt.Cache
}

// invoke 组装提示词、调用模型并解析为对象
func (b stageBase) invoke(ctx context.Context, in Context, stage prompt.Stage, name string, vars map[string]any, call AICallFunc) (map[string]any, error) {
	system, err := b.prompts.Get(in.Config, stage)
	if err != nil {
		return nil, err
	}
	user, err := b.prompts.Registry().UserPrompt(ctx, stage, vars)
	if err != nil {
		return nil, err
	}
	raw, err := call(ctx, system, user, schema.JSONSchema(stage))
	if err != nil {
		return nil, err
	}
	return coerce(name, raw)
}

// coerce 将模型返回值统一为 JSON 对象
func coerce(name string, raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		return node.ParseStageObject(name, v)
	case []byte:
		return node.ParseStageObject(name, string(v))
	case json.RawMessage:
		return node.ParseStageObject(name, string(v))
	case nil:
		return nil, &node.ParseError{Stage: name, Reason: "empty output"}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &node.ParseError{Stage: name, Reason: err.Error()}
		}
		return node.ParseStageObject(name, string(b))
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

func objects(m map[string]any, key string) []map[string]any {
	items, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func stringsField(m map[string]any, key string) ([]string, bool) {
	items, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, true
}

func stageFailed(name string, err error) string {
	return fmt.Sprintf("%s stage failed: %v", name, err)
}
