package model

import (
	"slices"
	"time"

	"logitoon-ai-api/internal/workflow/catalog"
)

// RenderStatus 漫画图片渲染状态
type RenderStatus string

const (
	RenderPending   RenderStatus = "pending"
	RenderRunning   RenderStatus = "rendering"
	RenderDone      RenderStatus = "done"
	RenderPartial   RenderStatus = "partial"
	RenderFailed    RenderStatus = "failed"
	RenderNotQueued RenderStatus = "not_queued"
)

// ComicPanel 合并叙述与画面后的单格
type ComicPanel struct {
	PanelID         int    `json:"panel_id"`
	Speaker         string `json:"speaker"`
	Narrative       string `json:"narrative"`
	ShotType        string `json:"shot_type"`
	Composition     string `json:"composition"`
	Location        string `json:"location"`
	LightingMood    string `json:"lighting_mood"`
	VisualPrompt    string `json:"visual_prompt"`
	CinematicReason string `json:"cinematic_reason,omitempty"`
	ImageKey        string `json:"image_key,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
}

// Comic 一次生成的完整漫画
type Comic struct {
	ID                  string                `json:"id"`
	Topic               string                `json:"topic"`
	Title               string                `json:"title"`
	TopicSummary        string                `json:"topic_summary"`
	TargetAge           catalog.AgeGroup      `json:"target_age"`
	Tone                catalog.Tone          `json:"tone"`
	Character           catalog.CharacterType `json:"character"`
	Style               catalog.StyleKey      `json:"style"`
	Language            string                `json:"language"`
	StylePreset         string                `json:"style_preset"`
	CharacterAnchor     string                `json:"character_anchor"`
	Setting             string                `json:"setting"`
	ColorPalette        string                `json:"color_palette"`
	MainCharacterPrompt string                `json:"main_character_prompt"`
	ForbiddenWords      []string              `json:"forbidden_words,omitempty"`
	Panels              []ComicPanel          `json:"panels"`
	EducationalSummary  string                `json:"educational_summary"`
	Warnings            []string              `json:"warnings,omitempty"`
	RenderStatus        RenderStatus          `json:"render_status"`
	CreatedAt           time.Time             `json:"created_at"`
}

// Clone 深拷贝，副本可独立修改
func (c *Comic) Clone() *Comic {
	if c == nil {
		return nil
	}
	out := *c
	out.ForbiddenWords = slices.Clone(c.ForbiddenWords)
	out.Panels = slices.Clone(c.Panels)
	out.Warnings = slices.Clone(c.Warnings)
	return &out
}

// Panel 按 panel_id 查找
func (c *Comic) Panel(id int) (*ComicPanel, bool) {
	for i := range c.Panels {
		if c.Panels[i].PanelID == id {
			return &c.Panels[i], true
		}
	}
	return nil, false
}
