// Package comic 漫画生成、漫画库与渲染编排
package comic

import (
	"context"

	"logitoon-ai-api/internal/infrastructure/messaging"
	"logitoon-ai-api/internal/infrastructure/render"
	"logitoon-ai-api/internal/workflow/model"
)

// StoryCache 已生成漫画的读穿缓存
type StoryCache interface {
	GetOrGenerate(ctx context.Context, key string, generate func(context.Context) (*model.Comic, error)) (*model.Comic, bool, error)
	InvalidateAll(ctx context.Context) (int, error)
}

// RenderQueue 渲染任务队列
type RenderQueue interface {
	PublishRenderJob(ctx context.Context, job *messaging.RenderJobMessage) (string, error)
}

// ImageRenderer 单张图像渲染
type ImageRenderer interface {
	Render(ctx context.Context, prompt string) (*render.Image, error)
}

// ObjectStore 面板图像存储
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
