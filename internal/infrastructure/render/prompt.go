package render

import (
	"fmt"
	"strings"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
)

// NegativePrompt 所有面板共用的负面提示词
const NegativePrompt = "text, speech bubbles, word balloons, watermark, letters, numbers, digits, panel numbers, " +
	"white borders, comic book frames, gutters, dividers, blur, low quality, distortion, ugly, " +
	"split screen, multiple panels, grid"

// PanelPrompt 为第 index 个面板组装图像提示词
func PanelPrompt(c *model.Comic, index int) string {
	panel := c.Panels[index]

	style := c.Style
	if !style.Valid() {
		style = catalog.StyleKeys()[0]
	}
	artDirection := catalog.PictureBookStylePrompt(style, c.TargetAge, catalog.PanelPositionFor(index, len(c.Panels)))

	location := panel.Location
	if strings.TrimSpace(location) == "" {
		location = c.Setting
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a SINGLE high-quality illustration (1:1 aspect ratio).\n\n")
	fmt.Fprintf(&b, "=== 1. ART DIRECTION ===\n")
	fmt.Fprintf(&b, "STYLE: %s\n", artDirection)
	fmt.Fprintf(&b, "PALETTE: %s\n", c.ColorPalette)
	fmt.Fprintf(&b, "SETTING: %s\n", location)
	fmt.Fprintf(&b, "MAIN CHARACTER: %s (keep the character consistent)\n\n", c.MainCharacterPrompt)
	fmt.Fprintf(&b, "=== 2. SCENE (panel %d) ===\n", panel.PanelID)
	fmt.Fprintf(&b, "COMPOSITION: %s, %s\n", panel.ShotType, panel.Composition)
	fmt.Fprintf(&b, "LIGHTING: %s\n", panel.LightingMood)
	fmt.Fprintf(&b, "ACTION: %s\n\n", panel.VisualPrompt)
	fmt.Fprintf(&b, "=== 3. NEGATIVE PROMPT ===\n%s\n", NegativePrompt)
	return b.String()
}
