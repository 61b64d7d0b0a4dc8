package eino

import (
	"context"
	"strings"
)

type ctxKey string

const (
	ctxKeyStage    ctxKey = "llm_stage"
	ctxKeyProvider ctxKey = "llm_provider"
)

// WithStage 标记当前调用所属的流水线阶段
func WithStage(ctx context.Context, stage string) context.Context {
	if s := strings.TrimSpace(stage); s != "" {
		return context.WithValue(ctx, ctxKeyStage, s)
	}
	return ctx
}

// WithProvider 标记当前调用使用的供应商
func WithProvider(ctx context.Context, provider string) context.Context {
	if p := strings.TrimSpace(provider); p != "" {
		return context.WithValue(ctx, ctxKeyProvider, p)
	}
	return ctx
}

func StageFromContext(ctx context.Context) string {
	return valueOr(ctx, ctxKeyStage, "unknown")
}

func ProviderFromContext(ctx context.Context) string {
	return valueOr(ctx, ctxKeyProvider, "unknown")
}

func valueOr(ctx context.Context, key ctxKey, fallback string) string {
	if ctx == nil {
		return fallback
	}
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s
	}
	return fallback
}
