package comic

import (
	"context"
	"fmt"

	"logitoon-ai-api/internal/infrastructure/messaging"
	"logitoon-ai-api/pkg/logger"
)

// RenderJobHandler 把渲染任务交给批量渲染器；是否重试由消费者按错误码判断
func RenderJobHandler(renderer *BatchRenderer) messaging.RenderJobFunc {
	return func(ctx context.Context, job *messaging.RenderJobMessage) error {
		report, err := renderer.RenderComic(ctx, job.ComicID, job.PanelIDs)
		if err != nil {
			return fmt.Errorf("render job %s: %w", job.JobID, err)
		}
		logger.Info(ctx, "render job done", "job_id", job.JobID, "status", string(report.Status))
		return nil
	}
}
