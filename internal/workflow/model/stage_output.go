// Package model 定义流水线各阶段的结构化输出与最终漫画模型。
package model

// LogicOutput 逻辑阶段输出：核心事实与类比
type LogicOutput struct {
	DetectedLanguage string   `json:"detected_language"`
	CoreTruth        string   `json:"core_truth"`
	AnalogyModel     string   `json:"analogy_model"`
	IsMetaphorNeeded bool     `json:"is_metaphor_needed"`
	ForbiddenWords   []string `json:"forbidden_words"`
	SafetyNote       string   `json:"safety_note,omitempty"`
}

// PanelText 单格叙述
type PanelText struct {
	PanelID   int    `json:"panel_id"`
	Speaker   string `json:"speaker"`
	Narrative string `json:"narrative"`
}

// StoryOutput 故事阶段输出
type StoryOutput struct {
	Title              string      `json:"title"`
	TopicSummary       string      `json:"topic_summary"`
	PanelsText         []PanelText `json:"panels_text"`
	EducationalSummary string      `json:"educational_summary"`
}

// VisualPanel 单格画面指令
type VisualPanel struct {
	PanelID         int    `json:"panel_id"`
	ShotType        string `json:"shot_type"`
	Composition     string `json:"composition"`
	Location        string `json:"location"`
	LightingMood    string `json:"lighting_mood"`
	VisualPrompt    string `json:"visual_prompt"`
	CinematicReason string `json:"cinematic_reason,omitempty"`
}

// VisualOutput 视觉阶段输出
type VisualOutput struct {
	StylePreset         string        `json:"style_preset"`
	CharacterAnchor     string        `json:"character_anchor"`
	MainCharacterPrompt string        `json:"main_character_prompt"`
	Setting             string        `json:"setting"`
	ColorPalette        string        `json:"color_palette"`
	Panels              []VisualPanel `json:"panels"`
}

// ReviewSummary 评审汇总
type ReviewSummary struct {
	PanelsReviewed int `json:"panels_reviewed"`
	IssuesFound    int `json:"issues_found"`
	IssuesFixed    int `json:"issues_fixed"`
	FlowScore      int `json:"flow_score"`
}

// FlowTransition 相邻两格的衔接分析
type FlowTransition struct {
	Transition     string `json:"transition"`
	ShotChange     string `json:"shot_change"`
	PositionChange string `json:"position_change"`
	Verdict        string `json:"verdict"`
}

// RevisedPanel 评审修订，空字段表示保持原值
type RevisedPanel struct {
	PanelID      int    `json:"panel_id"`
	Speaker      string `json:"speaker,omitempty"`
	Narrative    string `json:"narrative,omitempty"`
	ShotType     string `json:"shot_type,omitempty"`
	Composition  string `json:"composition,omitempty"`
	LightingMood string `json:"lighting_mood,omitempty"`
	VisualPrompt string `json:"visual_prompt,omitempty"`
}

// CriticOutput 评审阶段输出
type CriticOutput struct {
	ReviewSummary ReviewSummary    `json:"review_summary"`
	FlowAnalysis  []FlowTransition `json:"flow_analysis"`
	RevisedPanels []RevisedPanel   `json:"revised_panels"`
}
