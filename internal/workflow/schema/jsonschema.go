package schema

import (
	"logitoon-ai-api/internal/workflow/prompt"
)

func str() map[string]any { return map[string]any{"type": "string"} }

func integer() map[string]any { return map[string]any{"type": "integer"} }

func obj(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

// JSONSchema 返回阶段输出的 JSON Schema，用于 response_format；未知阶段返回 nil
func JSONSchema(s prompt.Stage) map[string]any {
	switch s {
	case prompt.StageLogic:
		return obj(map[string]any{
			"detected_language":  str(),
			"core_truth":         str(),
			"analogy_model":      str(),
			"is_metaphor_needed": map[string]any{"type": "boolean"},
			"forbidden_words":    arrayOf(str()),
			"safety_note":        str(),
		}, "detected_language", "core_truth", "analogy_model", "forbidden_words")
	case prompt.StageStory:
		return obj(map[string]any{
			"title":         str(),
			"topic_summary": str(),
			"panels_text": arrayOf(obj(map[string]any{
				"panel_id":  integer(),
				"speaker":   str(),
				"narrative": str(),
			}, "panel_id", "narrative")),
			"educational_summary": str(),
		}, "title", "topic_summary", "panels_text", "educational_summary")
	case prompt.StageVisual:
		return obj(map[string]any{
			"style_preset":          str(),
			"character_anchor":      str(),
			"main_character_prompt": str(),
			"setting":               str(),
			"color_palette":         str(),
			"panels": arrayOf(obj(map[string]any{
				"panel_id":         integer(),
				"shot_type":        str(),
				"composition":      str(),
				"location":         str(),
				"lighting_mood":    str(),
				"visual_prompt":    str(),
				"cinematic_reason": str(),
			}, "panel_id", "shot_type", "composition", "location", "lighting_mood", "visual_prompt")),
		}, "style_preset", "character_anchor", "panels")
	case prompt.StageCritic:
		return obj(map[string]any{
			"review_summary": obj(map[string]any{
				"panels_reviewed": integer(),
				"issues_found":    integer(),
				"issues_fixed":    integer(),
				"flow_score":      integer(),
			}, "panels_reviewed", "issues_found", "issues_fixed", "flow_score"),
			"flow_analysis": arrayOf(obj(map[string]any{
				"transition":      str(),
				"shot_change":     str(),
				"position_change": str(),
				"verdict":         str(),
			}, "transition", "verdict")),
			"revised_panels": arrayOf(obj(map[string]any{
				"panel_id":      integer(),
				"speaker":       str(),
				"narrative":     str(),
				"shot_type":     str(),
				"composition":   str(),
				"lighting_mood": str(),
				"visual_prompt": str(),
			}, "panel_id")),
		}, "review_summary", "revised_panels")
	default:
		return nil
	}
}
