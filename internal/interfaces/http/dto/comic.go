package dto

import (
	"strings"
	"time"

	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
)

// ComicConfigRequest 漫画生成配置
type ComicConfigRequest struct {
	AgeGroup      string `json:"age_group" binding:"required"`
	Tone          string `json:"tone" binding:"required"`
	CharacterType string `json:"character_type" binding:"required"`
	StyleID       string `json:"style_id" binding:"required"`
	Language      string `json:"language,omitempty"`
	TopicCategory string `json:"topic_category,omitempty"`
}

// ToConfig 转换为提示词配置，键只做大小写与空白规范化，合法性由 Validate 判定
func (r ComicConfigRequest) ToConfig() prompt.Config {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return prompt.Config{
		AgeGroup:      catalog.AgeGroup(norm(r.AgeGroup)),
		Tone:          catalog.Tone(norm(r.Tone)),
		Character:     catalog.CharacterType(norm(r.CharacterType)),
		Style:         catalog.StyleKey(norm(r.StyleID)),
		Language:      norm(r.Language),
		TopicCategory: catalog.TopicCategory(norm(r.TopicCategory)),
	}
}

// GenerateComicRequest 生成漫画请求
type GenerateComicRequest struct {
	Topic string `json:"topic" binding:"required,max=500"`
	ComicConfigRequest
}

// RenderComicRequest 重新渲染请求，panel_ids 为空表示全部
type RenderComicRequest struct {
	PanelIDs []int `json:"panel_ids,omitempty"`
}

// ListComicsQuery 漫画列表过滤参数
type ListComicsQuery struct {
	AgeGroup string `form:"age_group"`
	Style    string `form:"style"`
	Language string `form:"language"`
}

// ToFilter 转换为仓储过滤条件
func (q ListComicsQuery) ToFilter() repository.ComicFilter {
	return repository.ComicFilter{
		AgeGroup: catalog.AgeGroup(strings.ToLower(q.AgeGroup)),
		Style:    catalog.StyleKey(strings.ToLower(q.Style)),
		Language: strings.ToLower(q.Language),
	}
}

// PanelResponse 面板
type PanelResponse struct {
	PanelID      int    `json:"panel_id"`
	Speaker      string `json:"speaker"`
	Narrative    string `json:"narrative"`
	ShotType     string `json:"shot_type"`
	Composition  string `json:"composition"`
	Location     string `json:"location"`
	LightingMood string `json:"lighting_mood"`
	VisualPrompt string `json:"visual_prompt"`
	ImageURL     string `json:"image_url,omitempty"`
}

// ComicResponse 漫画
type ComicResponse struct {
	ID                  string          `json:"id"`
	Topic               string          `json:"topic"`
	Title               string          `json:"title"`
	TopicSummary        string          `json:"topic_summary"`
	TargetAge           string          `json:"target_age"`
	Tone                string          `json:"tone"`
	CharacterType       string          `json:"character_type"`
	StyleID             string          `json:"style_id"`
	Language            string          `json:"language"`
	StylePreset         string          `json:"style_preset"`
	CharacterAnchor     string          `json:"character_anchor"`
	Setting             string          `json:"setting"`
	ColorPalette        string          `json:"color_palette"`
	MainCharacterPrompt string          `json:"main_character_prompt"`
	Panels              []PanelResponse `json:"panels"`
	EducationalSummary  string          `json:"educational_summary"`
	Warnings            []string        `json:"warnings,omitempty"`
	RenderStatus        string          `json:"render_status"`
	Cached              bool            `json:"cached,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

// ToComicResponse 转换漫画
func ToComicResponse(c *model.Comic) *ComicResponse {
	if c == nil {
		return nil
	}
	panels := make([]PanelResponse, 0, len(c.Panels))
	for _, p := range c.Panels {
		panels = append(panels, PanelResponse{
			PanelID:      p.PanelID,
			Speaker:      p.Speaker,
			Narrative:    p.Narrative,
			ShotType:     p.ShotType,
			Composition:  p.Composition,
			Location:     p.Location,
			LightingMood: p.LightingMood,
			VisualPrompt: p.VisualPrompt,
			ImageURL:     p.ImageURL,
		})
	}
	return &ComicResponse{
		ID:                  c.ID,
		Topic:               c.Topic,
		Title:               c.Title,
		TopicSummary:        c.TopicSummary,
		TargetAge:           string(c.TargetAge),
		Tone:                string(c.Tone),
		CharacterType:       string(c.Character),
		StyleID:             string(c.Style),
		Language:            c.Language,
		StylePreset:         c.StylePreset,
		CharacterAnchor:     c.CharacterAnchor,
		Setting:             c.Setting,
		ColorPalette:        c.ColorPalette,
		MainCharacterPrompt: c.MainCharacterPrompt,
		Panels:              panels,
		EducationalSummary:  c.EducationalSummary,
		Warnings:            c.Warnings,
		RenderStatus:        string(c.RenderStatus),
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
	}
}

// ComicListResponse 漫画列表
type ComicListResponse struct {
	Comics []*ComicResponse `json:"comics"`
}

// ToComicListResponse 转换漫画列表
func ToComicListResponse(items []*model.Comic) *ComicListResponse {
	out := make([]*ComicResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToComicResponse(c))
	}
	return &ComicListResponse{Comics: out}
}

// RenderAcceptedResponse 渲染已受理
type RenderAcceptedResponse struct {
	ComicID      string `json:"comic_id"`
	PanelIDs     []int  `json:"panel_ids,omitempty"`
	RenderStatus string `json:"render_status"`
}
