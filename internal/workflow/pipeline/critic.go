package pipeline

import (
	"context"
	"fmt"

	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/node"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/safety"
	"logitoon-ai-api/internal/workflow/schema"
)

// CriticStage 审阅分镜衔接并修订画面，失败只记警告
type CriticStage struct{ stageBase }

// NewCriticStage 创建评审阶段
func NewCriticStage(prompts *prompt.Cache) *CriticStage {
	return &CriticStage{stageBase{prompts: prompts}}
}

func (s *CriticStage) Name() string { return NameCritic }

func (s *CriticStage) ProgressMessage() string { return ProgressMessage(NameCritic, "en") }

func (s *CriticStage) Run(ctx context.Context, in Context, call AICallFunc) Context {
	out := in.withState(StateCriticRunning)
	if in.Story == nil || in.Visual == nil {
		out.warn("Critic stage skipped: visual result missing")
		return out
	}

	vars := map[string]any{
		"character_anchor": in.Visual.CharacterAnchor,
		"story_panels":     node.CompactJSON(in.Story.PanelsText),
		"visual_panels":    node.CompactJSON(in.Visual.Panels),
	}
	m, err := s.invoke(ctx, in, prompt.StageCritic, NameCritic, vars, call)
	if err != nil {
		out.warn(fmt.Sprintf("Critic stage skipped: %v", err))
		return out
	}
	critic, err := schema.ValidateCriticOutput(m)
	if err != nil {
		out.warn(fmt.Sprintf("Critic stage skipped: %v", err))
		return out
	}

	out.Critic = critic
	out.Story, out.Visual = applyRevisions(&out, in.Story, in.Visual, critic.RevisedPanels)
	return out
}

// applyRevisions 按 panel_id 应用修订，空字段保持原值；不安全的修订叙述被丢弃
func applyRevisions(out *Context, story *model.StoryOutput, visual *model.VisualOutput, revised []model.RevisedPanel) (*model.StoryOutput, *model.VisualOutput) {
	st := *story
	st.PanelsText = append([]model.PanelText(nil), story.PanelsText...)
	vs := *visual
	vs.Panels = append([]model.VisualPanel(nil), visual.Panels...)

	for _, r := range revised {
		for i := range st.PanelsText {
			p := &st.PanelsText[i]
			if p.PanelID != r.PanelID {
				continue
			}
			if r.Speaker != "" {
				p.Speaker = r.Speaker
			}
			if r.Narrative != "" {
				text, res, _ := safety.CorrectAndValidate(r.Narrative, out.Config.AgeGroup)
				if res.Passed {
					p.Narrative = text
				} else {
					out.warn(fmt.Sprintf("Critic revision for panel %d rejected by safety check", r.PanelID))
				}
			}
		}
		for i := range vs.Panels {
			p := &vs.Panels[i]
			if p.PanelID != r.PanelID {
				continue
			}
			if r.ShotType != "" {
				p.ShotType = r.ShotType
			}
			if r.Composition != "" {
				p.Composition = r.Composition
			}
			if r.LightingMood != "" {
				p.LightingMood = r.LightingMood
			}
			if r.VisualPrompt != "" {
				if safety.ValidateVisualPrompt(r.VisualPrompt).Passed {
					p.VisualPrompt = r.VisualPrompt
				} else {
					p.VisualPrompt = safety.EnsureChildSafePrefix(r.VisualPrompt)
				}
			}
		}
	}
	return &st, &vs
}
