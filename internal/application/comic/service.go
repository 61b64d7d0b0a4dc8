package comic

import (
	"context"
	"strings"

	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/infrastructure/messaging"
	redisstore "logitoon-ai-api/internal/infrastructure/persistence/redis"
	"logitoon-ai-api/internal/infrastructure/storage"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/pipeline"
	"logitoon-ai-api/internal/workflow/prompt"
	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

// Deps 服务依赖；Cache、Queue、Renderer、Store 可为空
type Deps struct {
	Runner   *pipeline.Runner
	Call     pipeline.AICallFunc
	Repo     repository.ComicRepository
	Cache    StoryCache
	Queue    RenderQueue
	Renderer *BatchRenderer
	Store    ObjectStore
}

// Options 服务行为开关
type Options struct {
	DefaultLanguage string
	// InlineRender 为 true 时在请求内同步渲染，不经过队列
	InlineRender bool
}

// Service 漫画应用服务
type Service struct {
	deps Deps
	opts Options
}

// NewService 创建漫画服务
func NewService(deps Deps, opts Options) *Service {
	return &Service{deps: deps, opts: opts}
}

// GenerateInput 生成请求
type GenerateInput struct {
	Topic     string
	Config    prompt.Config
	RequestID string
	Progress  pipeline.ProgressFunc
}

// GenerateResult 生成结果
type GenerateResult struct {
	Comic  *model.Comic
	Cached bool
}

// Generate 运行流水线并入库，随后按配置排队或同步渲染
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("topic is required")
	}
	cfg := in.Config
	if cfg.Language == "" {
		cfg.Language = s.opts.DefaultLanguage
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 入库在合并生成内完成，并发的相同请求只保存一次
	generate := func(ctx context.Context) (*model.Comic, error) {
		comic, err := s.runPipeline(ctx, topic, cfg, in.Progress)
		if err != nil {
			return nil, err
		}
		if err := s.deps.Repo.Save(ctx, comic); err != nil {
			return nil, err
		}
		return comic, nil
	}

	var (
		comic  *model.Comic
		cached bool
		err    error
	)
	if s.deps.Cache != nil {
		comic, cached, err = s.deps.Cache.GetOrGenerate(ctx, redisstore.StoryKey(topic, cfg), generate)
	} else {
		comic, err = generate(ctx)
	}
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.ComicIDKey, comic.ID)

	if cached {
		if in.Progress != nil {
			in.Progress(pipeline.NameLibrary, pipeline.ProgressMessage(pipeline.NameLibrary, cfg.Language))
		}
		stored, getErr := s.deps.Repo.Get(ctx, comic.ID)
		if getErr == nil {
			s.presign(ctx, stored)
			return &GenerateResult{Comic: stored, Cached: true}, nil
		}
		logger.Warn(ctx, "cached comic missing from library, saving again", "error", getErr.Error())
		if err := s.deps.Repo.Save(ctx, comic); err != nil {
			return nil, err
		}
	}

	s.startRender(ctx, comic, nil, in.RequestID)
	return &GenerateResult{Comic: comic, Cached: cached}, nil
}

func (s *Service) runPipeline(ctx context.Context, topic string, cfg prompt.Config, progress pipeline.ProgressFunc) (*model.Comic, error) {
	out := s.deps.Runner.Run(ctx, topic, cfg, s.deps.Call, progress)
	if out.Failed() {
		return nil, pipelineError(out)
	}

	comic, reports := pipeline.BuildComic(out)
	if comic == nil {
		return nil, apperrors.ErrGenerationFailed.WithDetail("pipeline produced no story")
	}
	for _, r := range reports {
		logger.Warn(ctx, "panel merge fallback", "detail", r)
	}
	return comic, nil
}

// pipelineError 保留限流等可分类的底层错误，其余归为生成失败
func pipelineError(out pipeline.Context) error {
	cause := out.Err()
	if apperrors.IsAppError(cause) {
		switch apperrors.AsAppError(cause).Code {
		case apperrors.CodeRateLimited, apperrors.CodeUnknownConfigKey, apperrors.CodeInvalidParam:
			return cause
		}
	}
	return apperrors.ErrGenerationFailed.WithDetail(strings.Join(out.Errors, "; ")).WithError(cause)
}

// startRender 有队列时投递任务，否则在开启 InlineRender 时同步渲染；失败只记录日志
func (s *Service) startRender(ctx context.Context, comic *model.Comic, panelIDs []int, requestID string) {
	switch {
	case s.opts.InlineRender && s.deps.Renderer != nil:
		report, err := s.deps.Renderer.RenderComic(ctx, comic.ID, panelIDs)
		if err != nil {
			logger.Error(ctx, "inline render failed", err)
		}
		if report != nil {
			comic.RenderStatus = report.Status
			if stored, getErr := s.deps.Repo.Get(ctx, comic.ID); getErr == nil {
				*comic = *stored
				s.presign(ctx, comic)
			}
		}
	case s.deps.Queue != nil:
		if _, err := s.deps.Queue.PublishRenderJob(ctx, &messaging.RenderJobMessage{
			ComicID:   comic.ID,
			PanelIDs:  panelIDs,
			RequestID: requestID,
		}); err != nil {
			logger.Error(ctx, "enqueue render job failed", err)
			return
		}
		if err := s.deps.Repo.UpdateRenderStatus(ctx, comic.ID, model.RenderPending); err != nil {
			logger.Error(ctx, "update render status failed", err)
			return
		}
		comic.RenderStatus = model.RenderPending
	}
}

// Get 读取漫画并为已渲染面板生成访问地址
func (s *Service) Get(ctx context.Context, id string) (*model.Comic, error) {
	comic, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.presign(ctx, comic)
	return comic, nil
}

// List 分页列出漫画
func (s *Service) List(ctx context.Context, filter repository.ComicFilter, page repository.Pagination) (*repository.PagedResult[*model.Comic], error) {
	result, err := s.deps.Repo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	for _, c := range result.Items {
		s.presign(ctx, c)
	}
	return result, nil
}

// Delete 删除漫画及其图像
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.deps.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.DeletePrefix(ctx, storage.ComicPrefix(id)); err != nil {
			logger.Error(ctx, "delete comic images failed", err, "comic_id", id)
		}
	}
	return nil
}

// Render 为已有漫画重新发起渲染
func (s *Service) Render(ctx context.Context, id string, panelIDs []int, requestID string) (*model.Comic, error) {
	comic, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := selectPanels(comic, panelIDs); err != nil {
		return nil, err
	}
	if s.deps.Queue == nil && (!s.opts.InlineRender || s.deps.Renderer == nil) {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("rendering is not configured")
	}
	s.startRender(logger.WithContext(ctx, logger.ComicIDKey, id), comic, panelIDs, requestID)
	return comic, nil
}

func (s *Service) presign(ctx context.Context, comic *model.Comic) {
	if s.deps.Store == nil || comic == nil {
		return
	}
	for i := range comic.Panels {
		p := &comic.Panels[i]
		if p.ImageKey == "" {
			continue
		}
		url, err := s.deps.Store.PresignGet(ctx, p.ImageKey)
		if err != nil {
			logger.Warn(ctx, "presign panel image failed", "panel_id", p.PanelID, "error", err.Error())
			continue
		}
		p.ImageURL = url
	}
}
