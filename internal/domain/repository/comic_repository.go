package repository

import (
	"context"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
)

// ComicFilter 漫画列表过滤条件，零值表示不过滤
type ComicFilter struct {
	AgeGroup catalog.AgeGroup
	Style    catalog.StyleKey
	Language string
}

// ComicRepository 漫画库
type ComicRepository interface {
	Save(ctx context.Context, comic *model.Comic) error
	Get(ctx context.Context, id string) (*model.Comic, error)
	List(ctx context.Context, filter ComicFilter, pagination Pagination) (*PagedResult[*model.Comic], error)
	Delete(ctx context.Context, id string) error
	// UpdatePanelImages 写入各格图片对象键并更新渲染状态
	UpdatePanelImages(ctx context.Context, id string, imageKeys map[int]string, status model.RenderStatus) error
	UpdateRenderStatus(ctx context.Context, id string, status model.RenderStatus) error
}
