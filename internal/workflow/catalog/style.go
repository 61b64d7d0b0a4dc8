package catalog

import (
	"fmt"
	"strings"
)

// StyleConfig 画风指令
type StyleConfig struct {
	Name        string
	Description string
	Prompt      string
}

// 可复用的画面组件
var (
	lighting = map[string]string{
		"golden-hour":   "warm golden-hour lighting with a soft rim light",
		"soft-diffused": "soft diffused daylight with gentle even shadows",
		"cinematic":     "cinematic volumetric light with soft sunbeams",
		"backlit-paper": "warm light glowing through layered paper",
		"flat-bright":   "bright flat lighting without harsh shadows",
	}
	texture = map[string]string{
		"tactile":          "tactile clay surfaces with subtle fingerprint detail",
		"watercolor-paper": "cold-press watercolor paper grain with soft pigment blooms",
		"painted-bg":       "lush hand-painted backgrounds",
		"paper-fiber":      "layered cardstock with visible fibers and crisp cut edges",
		"clean-vector":     "clean geometric shapes with smooth gradients",
	}
	camera = map[string]string{
		"shallow-dof":  "shallow depth of field, 35mm lens",
		"eye-level":    "eye-level framing at the character's height",
		"wide-cinema":  "wide cinematic framing with layered depth",
		"diorama":      "slightly top-down diorama view",
		"orthographic": "flat orthographic view",
	}
)

func compose(sep, terminator string, parts ...string) string {
	return strings.Join(parts, sep) + terminator
}

var styles = map[StyleKey]StyleConfig{
	Style3DClay: {
		Name:        "3D Animation",
		Description: "Bright, rounded, toy-like 3D characters.",
		Prompt: compose(". ", ".",
			"Disney Pixar style 3D animated still",
			lighting["golden-hour"],
			texture["tactile"],
			"Photorealistic rendering within a stylized 3D world",
			camera["shallow-dof"],
		),
	},
	StyleWatercolor: {
		Name:        "Soft Watercolor",
		Description: "Dreamy, artistic, gentle textures.",
		Prompt: compose(", ", ".",
			"Children's picture book watercolor illustration",
			texture["watercolor-paper"],
			lighting["soft-diffused"],
			"loose wet-on-wet washes with delicate ink outlines",
			camera["eye-level"],
		),
	},
	StyleGhibliAnime: {
		Name:        "Cinematic Anime",
		Description: "Lush scenery and expressive hand-drawn characters.",
		Prompt: compose(", ", ".",
			"Hand-drawn Japanese animation film still",
			texture["painted-bg"],
			lighting["cinematic"],
			"soft cel shading with expressive faces",
			camera["wide-cinema"],
		),
	},
	StylePaperCutout: {
		Name:        "Paper Craft",
		Description: "Layered paper shapes with real depth.",
		Prompt: compose(", ", ".",
			"Layered paper cutout diorama",
			texture["paper-fiber"],
			lighting["backlit-paper"],
			"gentle drop shadows between layers",
			camera["diorama"],
		),
	},
	StyleFlatVector: {
		Name:        "Modern Vector",
		Description: "Clean shapes and bold friendly colors.",
		Prompt: compose(", ", ".",
			"Modern flat vector illustration",
			texture["clean-vector"],
			lighting["flat-bright"],
			"limited cheerful palette with rounded corners",
			camera["orthographic"],
		),
	},
}

// StyleOf 查找画风配置
func StyleOf(s StyleKey) (StyleConfig, error) {
	cfg, ok := styles[s]
	if !ok {
		return StyleConfig{}, &ConfigKeyError{Kind: "style", Key: string(s)}
	}
	return cfg, nil
}

// MustStyleOf 查找画风配置，未知键 panic
func MustStyleOf(s StyleKey) StyleConfig {
	cfg, err := StyleOf(s)
	if err != nil {
		panic(err)
	}
	return cfg
}

// StyleGuide 渲染画风段落
func StyleGuide(s StyleKey) string {
	cfg := MustStyleOf(s)
	return fmt.Sprintf("# STYLE GUIDE: %s\n%s\nMANDATORY STYLE KEYWORDS: %s", cfg.Name, cfg.Description, cfg.Prompt)
}

// ChildSafePrefix 每个图像提示词都应携带的安全前缀
const ChildSafePrefix = "child-friendly illustration, soft rounded shapes, bright cheerful colors, warm inviting atmosphere, no scary elements,"

var pictureBookPrefix = []string{
	"storybook illustration",
	"single full-bleed scene",
	"gentle expressive faces",
	"simple readable composition",
}

var ageSpecificPrefix = map[AgeGroup]string{
	AgeToddler:    "very simple shapes, oversized friendly character, minimal background",
	AgeElementary: "clear storytelling details, a few discoverable background elements",
}

// PictureBookPrefix 返回按年龄调整的绘本前缀
func PictureBookPrefix(a AgeGroup) string {
	parts := append([]string{}, pictureBookPrefix...)
	if extra, ok := ageSpecificPrefix[a]; ok {
		parts = append(parts, extra)
	}
	return strings.Join(parts, ", ")
}

// PanelPosition 分镜在故事弧中的位置
type PanelPosition string

const (
	PositionHook        PanelPosition = "hook"
	PositionCuriosity   PanelPosition = "curiosity"
	PositionAnalogy     PanelPosition = "analogy"
	PositionExploration PanelPosition = "exploration"
	PositionEnding      PanelPosition = "ending"
)

var panelPositionPrefix = map[PanelPosition]string{
	PositionHook:        "inviting opening scene, character waves hello",
	PositionCuriosity:   "character looks up with wonder, question in the air",
	PositionAnalogy:     "playful visual comparison, everyday objects standing in for the idea",
	PositionExploration: "character actively discovering, dynamic friendly pose",
	PositionEnding:      "cozy satisfied ending, warm smile, sense of closure",
}

// PanelPositionPrefix 返回分镜位置前缀，未知位置返回空串
func PanelPositionPrefix(p PanelPosition) string {
	return panelPositionPrefix[p]
}

// PanelPositionFor 由分镜下标推导故事弧位置
func PanelPositionFor(index, total int) PanelPosition {
	switch {
	case index <= 0:
		return PositionHook
	case index >= total-1:
		return PositionEnding
	case index == 1:
		return PositionCuriosity
	case float64(index) < float64(total)*0.6:
		return PositionAnalogy
	default:
		return PositionExploration
	}
}

// PictureBookStylePrompt 组合安全前缀、绘本前缀、分镜位置与画风关键词
func PictureBookStylePrompt(s StyleKey, a AgeGroup, p PanelPosition) string {
	parts := []string{strings.TrimSuffix(ChildSafePrefix, ","), PictureBookPrefix(a)}
	if pos := PanelPositionPrefix(p); pos != "" {
		parts = append(parts, pos)
	}
	parts = append(parts, MustStyleOf(s).Prompt)
	return strings.Join(parts, ", ")
}
