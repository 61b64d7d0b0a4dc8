package pipeline

import (
	"context"
	"errors"
	"fmt"

	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/node"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/safety"
	"logitoon-ai-api/internal/workflow/schema"
	"logitoon-ai-api/pkg/metrics"
)

var errMissingPanels = errors.New("output has no panels")

// VisualStage 为每格生成镜头与画面提示词
type VisualStage struct{ stageBase }

// NewVisualStage 创建视觉阶段
func NewVisualStage(prompts *prompt.Cache) *VisualStage {
	return &VisualStage{stageBase{prompts: prompts}}
}

func (s *VisualStage) Name() string { return NameVisual }

func (s *VisualStage) ProgressMessage() string { return ProgressMessage(NameVisual, "en") }

func (s *VisualStage) Run(ctx context.Context, in Context, call AICallFunc) Context {
	if in.Story == nil {
		return in.fail("Visual stage requires story result")
	}
	out := in.withState(StateVisualRunning)

	vars := map[string]any{
		"title":         in.Story.Title,
		"topic_summary": in.Story.TopicSummary,
		"style_id":      string(in.Config.Style),
		"panels":        node.CompactJSON(in.Story.PanelsText),
	}
	m, err := s.invoke(ctx, in, prompt.StageVisual, NameVisual, vars, call)
	if err != nil {
		return out.failErr(NameVisual, err)
	}

	visual, err := schema.ValidateVisualOutput(m)
	if err != nil {
		out.warn(err.Error())
		visual = visualFromObject(m)
	}
	if len(visual.Panels) == 0 {
		return out.failErr(NameVisual, errMissingPanels)
	}

	out.Visual = checkVisualSafety(&out, visual)
	return out
}

// checkVisualSafety 未通过的提示词补上儿童安全前缀，主角提示词同样处理
func checkVisualSafety(out *Context, visual *model.VisualOutput) *model.VisualOutput {
	checked := *visual
	checked.Panels = make([]model.VisualPanel, len(visual.Panels))
	results := make([]safety.Result, 0, len(visual.Panels)+1)

	secure := func(label, p string) string {
		res := safety.ValidateVisualPrompt(p)
		if res.Passed {
			metrics.SafetyChecksTotal.WithLabelValues("visual", "pass").Inc()
			results = append(results, res)
			return p
		}
		fixed := safety.EnsureChildSafePrefix(p)
		recheck := safety.ValidateVisualPrompt(fixed)
		results = append(results, recheck)
		out.validation().Corrections = append(out.validation().Corrections, label+": added child-safe prefix")
		metrics.SafetyChecksTotal.WithLabelValues("visual", "corrected").Inc()
		if recheck.HasCritical() {
			out.warn(fmt.Sprintf("Visual %s still unsafe after correction: %v", label, recheck.Messages()))
		}
		return fixed
	}

	for i, p := range visual.Panels {
		p.VisualPrompt = secure(fmt.Sprintf("panel %d", p.PanelID), p.VisualPrompt)
		checked.Panels[i] = p
	}
	if checked.MainCharacterPrompt != "" {
		checked.MainCharacterPrompt = secure("main character", checked.MainCharacterPrompt)
	}

	agg := aggregate(results)
	out.validation().Visual = &agg
	return &checked
}

// visualFromObject 结构校验失败时的宽松解码
func visualFromObject(m map[string]any) *model.VisualOutput {
	out := &model.VisualOutput{}
	out.StylePreset, _ = stringField(m, "style_preset")
	out.CharacterAnchor, _ = stringField(m, "character_anchor")
	out.MainCharacterPrompt, _ = stringField(m, "main_character_prompt")
	out.Setting, _ = stringField(m, "setting")
	out.ColorPalette, _ = stringField(m, "color_palette")
	for i, p := range objects(m, "panels") {
		id, ok := intField(p, "panel_id")
		if !ok {
			id = i + 1
		}
		vp := model.VisualPanel{PanelID: id}
		vp.ShotType, _ = stringField(p, "shot_type")
		vp.Composition, _ = stringField(p, "composition")
		vp.Location, _ = stringField(p, "location")
		vp.LightingMood, _ = stringField(p, "lighting_mood")
		vp.VisualPrompt, _ = stringField(p, "visual_prompt")
		vp.CinematicReason, _ = stringField(p, "cinematic_reason")
		out.Panels = append(out.Panels, vp)
	}
	return out
}
