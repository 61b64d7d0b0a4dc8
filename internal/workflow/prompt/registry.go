// Package prompt 管理各阶段的版本化系统提示词、构建器与缓存。
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

//go:embed templates
var templatesFS embed.FS

// Stage 流水线阶段
type Stage string

const (
	StageLogic  Stage = "logic"
	StageStory  Stage = "story"
	StageVisual Stage = "visual"
	StageCritic Stage = "critic"
)

// Stages 返回全部阶段
func Stages() []Stage { return []Stage{StageLogic, StageStory, StageVisual, StageCritic} }

func (s Stage) Valid() bool {
	_, ok := versionTable[s]
	return ok
}

// ParseStage 解析阶段名
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", unknownStage(s)
	}
	return st, nil
}

func unknownStage(s any) error {
	return apperrors.ErrUnknownStage.WithDetail(fmt.Sprintf("stage %q", s))
}

// VersionedPrompt 某阶段的一个不可变提示词版本
type VersionedPrompt struct {
	Version     string `json:"version"`
	ReleaseDate string `json:"release_date"`
	Prompt      string `json:"-"`
	Notes       string `json:"notes"`
}

type versionMeta struct {
	version     string
	releaseDate string
	notes       string
}

// versionTable 按注册顺序排列，最后一项为默认版本
var versionTable = map[Stage][]versionMeta{
	StageLogic: {
		{"v1.0", "2024-01-15", "Initial version - basic structure"},
		{"v1.1", "2024-02-20", "Added metaphor decision and safety note"},
		{"v2.0", "2024-03-10", "Language detection and per-age forbidden vocabulary"},
		{"v3.0", "2024-12-12", "Single core truth with a concrete analogy model"},
	},
	StageStory: {
		{"v1.0", "2024-01-15", "Initial version - panel script"},
		{"v1.1", "2024-02-20", "Speaker field and educational summary"},
		{"v2.0", "2024-03-10", "Story arc hook to ending"},
		{"v3.0", "2024-06-01", "Sentence limits and onomatopoeia for toddlers"},
		{"v4.0", "2024-12-12", "Analogy-driven arc with positive closure"},
	},
	StageVisual: {
		{"v1.0", "2024-01-15", "Initial version - per-panel prompts"},
		{"v2.0", "2024-02-01", "Character anchor for consistency"},
		{"v3.0", "2024-02-15", "Shot types and composition"},
		{"v4.0", "2024-03-01", "Lighting mood per panel"},
		{"v4.1", "2024-03-05", "Child-safe prefix requirement"},
		{"v5.0", "2024-03-15", "Location continuity and setting"},
		{"v6.0", "2024-03-22", "Cinematic reasoning per shot"},
		{"v7.0", "2024-03-30", "Color palette and no-text rule"},
	},
	StageCritic: {
		{"v1.0", "2024-12-12", "Initial version - flow review"},
		{"v1.1", "2024-12-14", "Shot variety scoring"},
		{"v2.0", "2024-12-18", "Position change analysis"},
		{"v3.0", "2024-12-22", "Revised panels keep the character anchor"},
	},
}

// DefaultVersion 返回阶段默认(最新)版本
func DefaultVersion(s Stage) string {
	metas := versionTable[s]
	if len(metas) == 0 {
		return ""
	}
	return metas[len(metas)-1].version
}

// ActiveVersions 外部配置选择的版本，空串表示默认
type ActiveVersions struct {
	Logic  string
	Story  string
	Visual string
	Critic string
}

func (a ActiveVersions) of(s Stage) string {
	switch s {
	case StageLogic:
		return a.Logic
	case StageStory:
		return a.Story
	case StageVisual:
		return a.Visual
	case StageCritic:
		return a.Critic
	}
	return ""
}

// Registry 版本化提示词存储。版本只在构造时注册，运行期只能切换激活版本。
type Registry struct {
	mu       sync.RWMutex
	versions map[Stage]map[string]VersionedPrompt
	active   map[Stage]string

	tplMu    sync.RWMutex
	userTpls map[Stage]einoprompt.ChatTemplate
}

// NewRegistry 加载内嵌模板并按 overrides 选择激活版本；未知版本回退到默认版本
func NewRegistry(overrides ActiveVersions) (*Registry, error) {
	r := &Registry{
		versions: make(map[Stage]map[string]VersionedPrompt, len(versionTable)),
		active:   make(map[Stage]string, len(versionTable)),
		userTpls: make(map[Stage]einoprompt.ChatTemplate),
	}

	for stage, metas := range versionTable {
		byVersion := make(map[string]VersionedPrompt, len(metas))
		for _, m := range metas {
			text, err := readEmbeddedText(fmt.Sprintf("templates/%s/%s.txt", stage, m.version))
			if err != nil {
				return nil, fmt.Errorf("load %s prompt %s: %w", stage, m.version, err)
			}
			byVersion[m.version] = VersionedPrompt{
				Version:     m.version,
				ReleaseDate: m.releaseDate,
				Prompt:      text,
				Notes:       m.notes,
			}
		}
		r.versions[stage] = byVersion

		want := overrides.of(stage)
		switch {
		case want == "":
			r.active[stage] = DefaultVersion(stage)
		case hasVersion(byVersion, want):
			r.active[stage] = want
		default:
			logger.Warn(context.Background(), "unknown prompt version, falling back to default",
				"stage", stage, "requested", want, "default", DefaultVersion(stage))
			r.active[stage] = DefaultVersion(stage)
		}
	}
	return r, nil
}

func hasVersion(m map[string]VersionedPrompt, v string) bool {
	_, ok := m[v]
	return ok
}

// Prompt 返回激活版本的提示词正文
func (r *Registry) Prompt(s Stage) (string, error) {
	vp, err := r.PromptVersion(s)
	if err != nil {
		return "", err
	}
	return vp.Prompt, nil
}

// PromptVersion 返回激活版本的完整元数据
func (r *Registry) PromptVersion(s Stage) (VersionedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion, ok := r.versions[s]
	if !ok {
		return VersionedPrompt{}, unknownStage(s)
	}
	return byVersion[r.active[s]], nil
}

// Version 按版本号查找
func (r *Registry) Version(s Stage, version string) (VersionedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vp, ok := r.versions[s][version]
	return vp, ok
}

// ActiveVersion 返回阶段当前激活的版本号
func (r *Registry) ActiveVersion(s Stage) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[s]
}

// AllVersions 按注册顺序列出版本号
func (r *Registry) AllVersions(s Stage) []string {
	metas := versionTable[s]
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.version)
	}
	return out
}

// Activate 切换激活版本，用于灰度与回滚
func (r *Registry) Activate(s Stage, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion, ok := r.versions[s]
	if !ok {
		return unknownStage(s)
	}
	if !hasVersion(byVersion, version) {
		return apperrors.ErrPromptVersionNotFound.WithDetail(fmt.Sprintf("%s %s", s, version))
	}
	r.active[s] = version
	return nil
}

// UserPrompt 以 FString 模板渲染阶段的用户提示词
func (r *Registry) UserPrompt(ctx context.Context, s Stage, vars map[string]any) (string, error) {
	tpl, err := r.userTemplate(s)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format %s user prompt: %w", s, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("format %s user prompt: empty result", s)
	}
	return msgs[0].Content, nil
}

func (r *Registry) userTemplate(s Stage) (einoprompt.ChatTemplate, error) {
	if !s.Valid() {
		return nil, unknownStage(s)
	}

	r.tplMu.RLock()
	if tpl, ok := r.userTpls[s]; ok {
		r.tplMu.RUnlock()
		return tpl, nil
	}
	r.tplMu.RUnlock()

	r.tplMu.Lock()
	defer r.tplMu.Unlock()
	if tpl, ok := r.userTpls[s]; ok {
		return tpl, nil
	}

	text, err := readEmbeddedText(fmt.Sprintf("templates/%s/user.txt", s))
	if err != nil {
		return nil, err
	}
	tpl := einoprompt.FromMessages(schema.FString, schema.UserMessage(text))
	r.userTpls[s] = tpl
	return tpl, nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
