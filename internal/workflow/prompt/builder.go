package prompt

import (
	"strings"

	"logitoon-ai-api/internal/workflow/catalog"
)

// Builder 按阶段拼装系统提示词。实例不可变，WithConfig 返回新实例。
type Builder struct {
	registry *Registry
	cfg      Config
}

// NewBuilder 创建构建器
func NewBuilder(registry *Registry, cfg Config) *Builder {
	return &Builder{registry: registry, cfg: cfg}
}

// Config 返回配置副本
func (b *Builder) Config() Config {
	return b.cfg
}

// WithConfig 返回合并 patch 后的新构建器
func (b *Builder) WithConfig(p ConfigPatch) *Builder {
	return &Builder{registry: b.registry, cfg: b.cfg.Merge(p)}
}

// Build 以固定顺序、空行分隔拼装阶段提示词
func (b *Builder) Build(s Stage) (string, error) {
	if !s.Valid() {
		return "", unknownStage(s)
	}
	if err := b.cfg.Validate(); err != nil {
		return "", err
	}
	base, err := b.registry.Prompt(s)
	if err != nil {
		return "", err
	}

	c := b.cfg
	var sections []string
	switch s {
	case StageLogic:
		sections = []string{
			base,
			catalog.AudienceDirective(c.AgeGroup),
			catalog.ForbiddenWordsDirective(c.AgeGroup, c.Topic()),
		}
	case StageStory:
		sections = []string{
			base,
			catalog.AudienceDirective(c.AgeGroup),
			catalog.ToneDirective(c.Tone),
			catalog.CharacterGuideline(c.Character),
			catalog.OutputLimitsDirective(c.AgeGroup),
			catalog.LanguageDirective(c.Language),
		}
	case StageVisual:
		sections = []string{
			base,
			catalog.AgeVisualGuide(c.AgeGroup),
			catalog.StyleGuide(c.Style),
			catalog.CharacterGuideline(c.Character),
		}
	case StageCritic:
		sections = []string{
			base,
			catalog.AgeVisualGuide(c.AgeGroup),
			catalog.OutputLimitsDirective(c.AgeGroup),
		}
	}
	return strings.Join(sections, "\n\n"), nil
}
