package catalog

import "fmt"

// OutputLimits 结构化输出的上限
type OutputLimits struct {
	MaxPanels             int
	MaxNarrativeLength    int
	MaxSentencesPerPanel  int
	MaxTitleLength        int
	MaxVisualPromptLength int
}

var defaultLimits = OutputLimits{
	MaxPanels:             12,
	MaxNarrativeLength:    150,
	MaxSentencesPerPanel:  2,
	MaxTitleLength:        50,
	MaxVisualPromptLength: 300,
}

// 零值字段表示沿用默认值
var ageLimitOverrides = map[AgeGroup]OutputLimits{
	AgeToddler:    {MaxNarrativeLength: 50, MaxSentencesPerPanel: 1, MaxTitleLength: 30},
	AgeElementary: {MaxNarrativeLength: 80, MaxSentencesPerPanel: 2, MaxTitleLength: 40},
}

// OutputLimitsFor 合并默认值与年龄段覆盖
func OutputLimitsFor(a AgeGroup) OutputLimits {
	out := defaultLimits
	o := ageLimitOverrides[a]
	if o.MaxPanels > 0 {
		out.MaxPanels = o.MaxPanels
	}
	if o.MaxNarrativeLength > 0 {
		out.MaxNarrativeLength = o.MaxNarrativeLength
	}
	if o.MaxSentencesPerPanel > 0 {
		out.MaxSentencesPerPanel = o.MaxSentencesPerPanel
	}
	if o.MaxTitleLength > 0 {
		out.MaxTitleLength = o.MaxTitleLength
	}
	if o.MaxVisualPromptLength > 0 {
		out.MaxVisualPromptLength = o.MaxVisualPromptLength
	}
	return out
}

// OutputLimitsDirective 渲染输出上限段落
func OutputLimitsDirective(a AgeGroup) string {
	l := OutputLimitsFor(a)
	return fmt.Sprintf("# OUTPUT LIMITS\n"+
		"- Panels: at most %d\n"+
		"- Narrative per panel: at most %d characters\n"+
		"- Sentences per panel: at most %d\n"+
		"- Title: at most %d characters\n"+
		"- Visual prompt: at most %d characters",
		l.MaxPanels, l.MaxNarrativeLength, l.MaxSentencesPerPanel, l.MaxTitleLength, l.MaxVisualPromptLength)
}
