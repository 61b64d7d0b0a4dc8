package comic

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/infrastructure/render"
	"logitoon-ai-api/internal/infrastructure/storage"
	"logitoon-ai-api/internal/workflow/model"
	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

const (
	defaultBatchSize  = 2
	defaultBatchDelay = 2500 * time.Millisecond
)

// RenderReport 一次渲染的结果
type RenderReport struct {
	ComicID  string             `json:"comic_id"`
	Rendered []int              `json:"rendered"`
	Failed   []int              `json:"failed,omitempty"`
	Status   model.RenderStatus `json:"status"`
}

// BatchRenderer 分批并发渲染面板，批间固定间隔
type BatchRenderer struct {
	renderer  ImageRenderer
	store     ObjectStore
	repo      repository.ComicRepository
	batchSize int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBatchRenderer 创建批量渲染器
func NewBatchRenderer(renderer ImageRenderer, store ObjectStore, repo repository.ComicRepository, batchSize int, delay time.Duration) *BatchRenderer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if delay < 0 {
		delay = defaultBatchDelay
	}
	return &BatchRenderer{
		renderer:  renderer,
		store:     store,
		repo:      repo,
		batchSize: batchSize,
		delay:     delay,
		sleep:     sleepContext,
	}
}

// RenderComic 渲染指定面板，panelIDs 为空时渲染全部；单格失败不影响其他格
func (b *BatchRenderer) RenderComic(ctx context.Context, comicID string, panelIDs []int) (*RenderReport, error) {
	ctx = logger.WithContext(ctx, logger.ComicIDKey, comicID)

	comic, err := b.repo.Get(ctx, comicID)
	if err != nil {
		return nil, err
	}
	targets, err := selectPanels(comic, panelIDs)
	if err != nil {
		return nil, err
	}
	if err := b.repo.UpdateRenderStatus(ctx, comicID, model.RenderRunning); err != nil {
		return nil, err
	}

	var (
		mu          sync.Mutex
		keys        = make(map[int]string, len(targets))
		interrupted error
	)
	for start := 0; start < len(targets) && interrupted == nil; start += b.batchSize {
		end := min(start+b.batchSize, len(targets))

		var g errgroup.Group
		for _, idx := range targets[start:end] {
			g.Go(func() error {
				key, err := b.renderPanel(ctx, comic, idx)
				if err != nil {
					logger.Warn(ctx, "panel render failed", "panel_id", comic.Panels[idx].PanelID, "error", err.Error())
					return nil
				}
				mu.Lock()
				keys[comic.Panels[idx].PanelID] = key
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(targets) {
			interrupted = b.sleep(ctx, b.delay)
		}
	}

	report := &RenderReport{ComicID: comicID}
	for _, idx := range targets {
		id := comic.Panels[idx].PanelID
		if _, ok := keys[id]; ok {
			report.Rendered = append(report.Rendered, id)
		} else {
			report.Failed = append(report.Failed, id)
		}
	}
	report.Status = renderStatus(len(report.Rendered), len(report.Failed))

	// 取消后仍要落库已上传的面板
	saveCtx := ctx
	if interrupted != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	if err := b.repo.UpdatePanelImages(saveCtx, comicID, keys, report.Status); err != nil {
		return report, err
	}
	if interrupted != nil {
		logger.Warn(ctx, "comic render interrupted",
			"rendered", len(report.Rendered),
			"remaining", len(report.Failed),
			"status", string(report.Status),
		)
		return report, fmt.Errorf("render interrupted: %w", interrupted)
	}
	logger.Info(ctx, "comic render finished",
		"rendered", len(report.Rendered),
		"failed", len(report.Failed),
		"status", string(report.Status),
	)
	if report.Status == model.RenderFailed {
		return report, apperrors.ErrRenderFailed.WithDetail(fmt.Sprintf("all %d panels failed", len(report.Failed)))
	}
	return report, nil
}

func (b *BatchRenderer) renderPanel(ctx context.Context, comic *model.Comic, idx int) (string, error) {
	img, err := b.renderer.Render(ctx, render.PanelPrompt(comic, idx))
	if err != nil {
		return "", err
	}
	key := storage.PanelKey(comic.ID, comic.Panels[idx].PanelID, img.MIMEType)
	if err := b.store.Put(ctx, key, img.Data, img.MIMEType); err != nil {
		return "", err
	}
	return key, nil
}

// selectPanels 返回待渲染面板的下标，保持面板顺序
func selectPanels(comic *model.Comic, panelIDs []int) ([]int, error) {
	if len(comic.Panels) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail("comic has no panels")
	}
	var out []int
	for i, p := range comic.Panels {
		if len(panelIDs) == 0 || slices.Contains(panelIDs, p.PanelID) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("no panels match %v", panelIDs))
	}
	return out, nil
}

func renderStatus(rendered, failed int) model.RenderStatus {
	switch {
	case failed == 0:
		return model.RenderDone
	case rendered == 0:
		return model.RenderFailed
	default:
		return model.RenderPartial
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
