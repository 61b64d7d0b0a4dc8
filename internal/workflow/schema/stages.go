package schema

import (
	"fmt"

	"logitoon-ai-api/internal/workflow/model"
)

const maxPanels = 12

// ValidateLogicOutput 校验逻辑阶段输出
func ValidateLogicOutput(raw any) (*model.LogicOutput, error) {
	const stage = "Logic"
	m, err := toObject(raw)
	if err != nil {
		return nil, inputError(stage, err)
	}

	var c checker
	c.str(m, "", "detected_language", 2, 5, false)
	c.str(m, "", "core_truth", 10, 200, false)
	c.str(m, "", "analogy_model", 3, 100, false)
	c.boolean(m, "", "is_metaphor_needed")
	if words := c.array(m, "", "forbidden_words", 1, 50, false); words != nil {
		for i, w := range words {
			if _, ok := w.(string); !ok {
				c.add(fmt.Sprintf("forbidden_words.%d", i), "Expected string, received %s", typeName(w))
			}
		}
	}
	c.str(m, "", "safety_note", 0, 0, true)
	if err := c.err(stage); err != nil {
		return nil, err
	}

	out := &model.LogicOutput{}
	if err := decodeInto(withDefaults(m, map[string]any{"is_metaphor_needed": true}), out); err != nil {
		return nil, inputError(stage, err)
	}
	return out, nil
}

// ValidateStoryOutput 校验故事阶段输出
func ValidateStoryOutput(raw any) (*model.StoryOutput, error) {
	const stage = "Story"
	m, err := toObject(raw)
	if err != nil {
		return nil, inputError(stage, err)
	}

	var c checker
	c.str(m, "", "title", 3, 100, false)
	c.str(m, "", "topic_summary", 10, 300, false)
	panels := c.array(m, "", "panels_text", 1, maxPanels, false)
	seen := make(map[int]bool)
	for i, p := range panels {
		path := fmt.Sprintf("panels_text.%d", i)
		obj, ok := c.object(p, path)
		if !ok {
			continue
		}
		if id, ok := c.integer(obj, path, "panel_id", 1, maxPanels); ok {
			if seen[id] {
				c.add(path+".panel_id", "Duplicate panel_id %d", id)
			}
			seen[id] = true
		}
		c.str(obj, path, "speaker", 0, 0, true)
		c.str(obj, path, "narrative", 1, 500, false)
	}
	c.str(m, "", "educational_summary", 10, 500, false)
	if err := c.err(stage); err != nil {
		return nil, err
	}

	// speaker 缺失时解码为空串
	out := &model.StoryOutput{}
	if err := decodeInto(m, out); err != nil {
		return nil, inputError(stage, err)
	}
	return out, nil
}

// ValidateVisualOutput 校验视觉阶段输出
func ValidateVisualOutput(raw any) (*model.VisualOutput, error) {
	const stage = "Visual"
	m, err := toObject(raw)
	if err != nil {
		return nil, inputError(stage, err)
	}

	var c checker
	c.str(m, "", "style_preset", 2, 0, false)
	c.str(m, "", "character_anchor", 10, 500, false)
	c.str(m, "", "main_character_prompt", 10, 500, false)
	c.str(m, "", "setting", 0, 0, true)
	c.str(m, "", "color_palette", 0, 0, true)
	panels := c.array(m, "", "panels", 1, maxPanels, false)
	seen := make(map[int]bool)
	for i, p := range panels {
		path := fmt.Sprintf("panels.%d", i)
		obj, ok := c.object(p, path)
		if !ok {
			continue
		}
		if id, ok := c.integer(obj, path, "panel_id", 1, maxPanels); ok {
			if seen[id] {
				c.add(path+".panel_id", "Duplicate panel_id %d", id)
			}
			seen[id] = true
		}
		c.str(obj, path, "shot_type", 3, 0, false)
		c.str(obj, path, "composition", 3, 0, false)
		c.str(obj, path, "location", 3, 0, false)
		c.str(obj, path, "lighting_mood", 3, 0, false)
		c.str(obj, path, "visual_prompt", 10, 1500, false)
		c.str(obj, path, "cinematic_reason", 0, 0, true)
	}
	if err := c.err(stage); err != nil {
		return nil, err
	}

	// setting、color_palette 缺失时解码为空串
	out := &model.VisualOutput{}
	if err := decodeInto(m, out); err != nil {
		return nil, inputError(stage, err)
	}
	return out, nil
}

// ValidateCriticOutput 校验评审阶段输出
func ValidateCriticOutput(raw any) (*model.CriticOutput, error) {
	const stage = "Critic"
	m, err := toObject(raw)
	if err != nil {
		return nil, inputError(stage, err)
	}

	var c checker
	if v, ok := m["review_summary"]; !ok {
		c.add("review_summary", "Required")
	} else if summary, ok := c.object(v, "review_summary"); ok {
		c.integer(summary, "review_summary", "panels_reviewed", 0, maxPanels)
		c.integer(summary, "review_summary", "issues_found", 0, 1000)
		c.integer(summary, "review_summary", "issues_fixed", 0, 1000)
		c.integer(summary, "review_summary", "flow_score", 0, 100)
	}
	for i, f := range c.array(m, "", "flow_analysis", 0, 0, true) {
		path := fmt.Sprintf("flow_analysis.%d", i)
		if obj, ok := c.object(f, path); ok {
			c.str(obj, path, "transition", 1, 0, false)
			c.str(obj, path, "verdict", 1, 0, false)
		}
	}
	for i, p := range c.array(m, "", "revised_panels", 0, maxPanels, false) {
		path := fmt.Sprintf("revised_panels.%d", i)
		if obj, ok := c.object(p, path); ok {
			c.integer(obj, path, "panel_id", 1, maxPanels)
			c.str(obj, path, "visual_prompt", 10, 1500, true)
		}
	}
	if err := c.err(stage); err != nil {
		return nil, err
	}

	out := &model.CriticOutput{}
	if err := decodeInto(m, out); err != nil {
		return nil, inputError(stage, err)
	}
	return out, nil
}

// SafeValidateLogicOutput 校验失败返回 nil
func SafeValidateLogicOutput(raw any) *model.LogicOutput {
	out, err := ValidateLogicOutput(raw)
	if err != nil {
		return nil
	}
	return out
}

// SafeValidateStoryOutput 校验失败返回 nil
func SafeValidateStoryOutput(raw any) *model.StoryOutput {
	out, err := ValidateStoryOutput(raw)
	if err != nil {
		return nil
	}
	return out
}

// SafeValidateVisualOutput 校验失败返回 nil
func SafeValidateVisualOutput(raw any) *model.VisualOutput {
	out, err := ValidateVisualOutput(raw)
	if err != nil {
		return nil
	}
	return out
}

// SafeValidateCriticOutput 校验失败返回 nil
func SafeValidateCriticOutput(raw any) *model.CriticOutput {
	out, err := ValidateCriticOutput(raw)
	if err != nil {
		return nil
	}
	return out
}
