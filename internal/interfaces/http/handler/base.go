package handler

import (
	"context"

	"logitoon-ai-api/internal/application/comic"
	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
)

// ComicService 漫画应用服务
type ComicService interface {
	Generate(ctx context.Context, in comic.GenerateInput) (*comic.GenerateResult, error)
	Get(ctx context.Context, id string) (*model.Comic, error)
	List(ctx context.Context, filter repository.ComicFilter, page repository.Pagination) (*repository.PagedResult[*model.Comic], error)
	Delete(ctx context.Context, id string) error
	Render(ctx context.Context, id string, panelIDs []int, requestID string) (*model.Comic, error)
}

// PromptAdmin 提示词管理
type PromptAdmin interface {
	Versions() []comic.StageVersions
	Activate(ctx context.Context, stage, version string) error
	CacheStats() prompt.CacheStats
	InvalidateCache()
	Preview(cfg prompt.Config, stage string) (string, error)
}
