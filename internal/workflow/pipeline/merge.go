package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
)

const (
	defaultShotType     = "Wide Shot"
	defaultComposition  = "Rule of Thirds"
	defaultLocation     = "A magical world"
	defaultLightingMood = "Warm Golden Hour"
)

// MergePanels 按 panel_id 合并叙述与画面；找不到时退回同序号的画面并在报告中记录
func MergePanels(story *model.StoryOutput, visual *model.VisualOutput, cfg prompt.Config) ([]model.ComicPanel, []string) {
	if story == nil {
		return nil, nil
	}
	var vpanels []model.VisualPanel
	var setting string
	if visual != nil {
		vpanels = visual.Panels
		setting = visual.Setting
	}

	byID := make(map[int]model.VisualPanel, len(vpanels))
	for _, vp := range vpanels {
		if _, dup := byID[vp.PanelID]; !dup {
			byID[vp.PanelID] = vp
		}
	}

	var reports []string
	panels := make([]model.ComicPanel, 0, len(story.PanelsText))
	for i, sp := range story.PanelsText {
		vp, ok := byID[sp.PanelID]
		switch {
		case ok:
		case i < len(vpanels):
			vp = vpanels[i]
			reports = append(reports, fmt.Sprintf("panel %d: no visual panel with the same id, using visual panel %d at index %d", sp.PanelID, vp.PanelID, i))
		default:
			vp = model.VisualPanel{}
			reports = append(reports, fmt.Sprintf("panel %d: no visual panel, using defaults", sp.PanelID))
		}

		panels = append(panels, model.ComicPanel{
			PanelID:         sp.PanelID,
			Speaker:         sp.Speaker,
			Narrative:       sp.Narrative,
			ShotType:        firstNonEmpty(vp.ShotType, defaultShotType),
			Composition:     firstNonEmpty(vp.Composition, defaultComposition),
			Location:        firstNonEmpty(vp.Location, setting, defaultLocation),
			LightingMood:    firstNonEmpty(vp.LightingMood, defaultLightingMood),
			VisualPrompt:    firstNonEmpty(vp.VisualPrompt, fmt.Sprintf("A cute %s interacting with %s", cfg.Character, story.TopicSummary)),
			CinematicReason: vp.CinematicReason,
		})
	}
	return panels, reports
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// BuildComic 由完成的上下文组装漫画，返回合并报告
func BuildComic(c Context) (*model.Comic, []string) {
	if c.Story == nil {
		return nil, nil
	}
	panels, reports := MergePanels(c.Story, c.Visual, c.Config)

	comic := &model.Comic{
		ID:                 uuid.NewString(),
		Topic:              c.Topic,
		Title:              c.Story.Title,
		TopicSummary:       c.Story.TopicSummary,
		TargetAge:          c.Config.AgeGroup,
		Tone:               c.Config.Tone,
		Character:          c.Config.Character,
		Style:              c.Config.Style,
		Language:           c.Config.Language,
		StylePreset:        string(c.Config.Style),
		Panels:             panels,
		EducationalSummary: c.Story.EducationalSummary,
		Warnings:           append([]string(nil), c.Warnings...),
		RenderStatus:       model.RenderNotQueued,
		CreatedAt:          time.Now().UTC(),
	}
	if c.Logic != nil {
		comic.ForbiddenWords = append([]string(nil), c.Logic.ForbiddenWords...)
		if c.Logic.DetectedLanguage != "" && comic.Language == "" {
			comic.Language = c.Logic.DetectedLanguage
		}
	}
	if v := c.Visual; v != nil {
		comic.StylePreset = firstNonEmpty(v.StylePreset, comic.StylePreset)
		comic.CharacterAnchor = v.CharacterAnchor
		comic.Setting = v.Setting
		comic.ColorPalette = v.ColorPalette
		comic.MainCharacterPrompt = v.MainCharacterPrompt
	}
	return comic, reports
}
