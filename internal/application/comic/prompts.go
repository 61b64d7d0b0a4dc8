package comic

import (
	"context"

	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/pkg/logger"
)

// StageVersions 某阶段的版本清单
type StageVersions struct {
	Stage    prompt.Stage             `json:"stage"`
	Active   string                   `json:"active"`
	Versions []prompt.VersionedPrompt `json:"versions"`
}

// PromptService 提示词版本与缓存管理
type PromptService struct {
	cache  *prompt.Cache
	comics StoryCache
}

// NewPromptService 创建提示词管理服务；comics 为空时切换版本不清理漫画缓存
func NewPromptService(cache *prompt.Cache, comics StoryCache) *PromptService {
	return &PromptService{cache: cache, comics: comics}
}

// Versions 列出各阶段全部版本与当前激活版本
func (s *PromptService) Versions() []StageVersions {
	reg := s.cache.Registry()
	out := make([]StageVersions, 0, len(prompt.Stages()))
	for _, st := range prompt.Stages() {
		sv := StageVersions{Stage: st, Active: reg.ActiveVersion(st)}
		for _, v := range reg.AllVersions(st) {
			if vp, ok := reg.Version(st, v); ok {
				sv.Versions = append(sv.Versions, vp)
			}
		}
		out = append(out, sv)
	}
	return out
}

// Activate 切换激活版本，清空提示词缓存与漫画缓存
func (s *PromptService) Activate(ctx context.Context, stage, version string) error {
	st, err := prompt.ParseStage(stage)
	if err != nil {
		return err
	}
	if err := s.cache.ActivateVersion(st, version); err != nil {
		return err
	}
	logger.Info(ctx, "prompt version activated", "stage", string(st), "version", version)

	if s.comics != nil {
		n, err := s.comics.InvalidateAll(ctx)
		if err != nil {
			logger.Error(ctx, "invalidate comic cache failed", err)
			return nil
		}
		logger.Info(ctx, "comic cache invalidated", "count", n)
	}
	return nil
}

// CacheStats 提示词缓存统计
func (s *PromptService) CacheStats() prompt.CacheStats {
	return s.cache.Stats()
}

// InvalidateCache 清空提示词缓存
func (s *PromptService) InvalidateCache() {
	s.cache.Invalidate()
}

// Preview 按配置构建某阶段的系统提示词
func (s *PromptService) Preview(cfg prompt.Config, stage string) (string, error) {
	st, err := prompt.ParseStage(stage)
	if err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return s.cache.Get(cfg, st)
}
