package llm

import (
	"context"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	einoobs "logitoon-ai-api/internal/observability/eino"
	"logitoon-ai-api/internal/workflow/node"
	"logitoon-ai-api/internal/workflow/port"
	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

// Producer 将 ChatModel 适配为流水线的模型调用函数
type Producer struct {
	factory  port.ChatModelFactory
	provider string
}

// NewProducer 创建调用器，provider 为空时使用默认供应商
func NewProducer(factory port.ChatModelFactory, provider string) *Producer {
	return &Producer{factory: factory, provider: provider}
}

// Call 发送系统与用户提示词；先带 json_schema response_format，供应商不支持时退回普通调用
func (p *Producer) Call(ctx context.Context, systemPrompt, userPrompt string, outputSchema map[string]any) (any, error) {
	ctx = einoobs.WithProvider(ctx, p.provider)
	if stage, ok := ctx.Value(logger.StageKey).(string); ok {
		ctx = einoobs.WithStage(ctx, stage)
	}

	chatModel, err := p.factory.Get(ctx, p.provider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm provider unavailable")
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	out, err := chatModel.Generate(ctx, msgs, responseFormat(ctx, outputSchema)...)
	if err != nil && outputSchema != nil && node.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "response_format rejected, retrying without schema", "error", err.Error())
		out, err = chatModel.Generate(ctx, msgs)
	}
	if err != nil {
		if node.IsRateLimitError(err) {
			return nil, apperrors.ErrRateLimited.WithError(err)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call failed")
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, apperrors.New(apperrors.CodeMalformedOutput, "empty llm response")
	}
	return out.Content, nil
}

func responseFormat(ctx context.Context, outputSchema map[string]any) []model.Option {
	if outputSchema == nil {
		return nil
	}
	name := fmt.Sprintf("%s_output", strings.ToLower(einoobs.StageFromContext(ctx)))
	return []model.Option{openaiopts.WithExtraFields(map[string]any{
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": false,
				"schema": outputSchema,
			},
		},
	})}
}
