package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"logitoon-ai-api/pkg/metrics"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", StageFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithStage(ctx, " story ")
	ctx = WithProvider(ctx, "openai")
	assert.Equal(t, "story", StageFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))

	assert.Equal(t, "story", StageFromContext(WithStage(ctx, "  ")))
}

func TestChatModelCallbacks(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := WithProvider(context.Background(), "test-provider")

	success := metrics.LLMCallTotal.WithLabelValues("test-provider", "m-1", "success")
	failure := metrics.LLMCallTotal.WithLabelValues("test-provider", "m-1", "error")
	beforeOK, beforeErr := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	startCtx := h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m-1"}})
	h.OnEnd(startCtx, nil, &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	})
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(success))

	startCtx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m-1"}})
	h.OnError(startCtx, nil, errors.New("boom"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(failure))
}
