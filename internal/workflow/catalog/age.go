package catalog

import "fmt"

// AgeGroupConfig 年龄段指令与数值约束
type AgeGroupConfig struct {
	Label                string
	Prompt               string
	Negative             string
	MaxSentencesPerPanel int
	MaxWordsPerSentence  int
	ToneGuide            string
	ExamplePanels        []string
}

var ageGroups = map[AgeGroup]AgeGroupConfig{
	AgeToddler: {
		Label: "Toddler (3-5 years)",
		Prompt: "Write for a preschooler who is still learning to listen to stories. " +
			"Use one short sentence per panel with words a three-year-old hears every day. " +
			"Lean on sounds, colors, feelings and things the child can touch. " +
			"Repeat a friendly pattern so the child can guess what comes next.",
		Negative: "No scientific terms, no abstract ideas, no numbers beyond five, " +
			"no conjunctions like therefore or however, nothing frightening or sad.",
		MaxSentencesPerPanel: 1,
		MaxWordsPerSentence:  8,
		ToneGuide:            "Warm and playful, like a parent reading aloud at bedtime. Use onomatopoeia (whoosh, pop, splash) freely.",
		ExamplePanels: []string{
			"Whoosh! The sun says hello to the sky.",
			"Blue light bounces and plays everywhere!",
			"The sky wears its blue hat today.",
		},
	},
	AgeElementary: {
		Label: "Elementary (6-8 years)",
		Prompt: "Write for an early reader who loves asking why. " +
			"Use at most two short sentences per panel and explain one idea at a time. " +
			"Connect every new idea to something from school, home or the playground. " +
			"A simple cause and effect is welcome when it stays concrete.",
		Negative: "No technical jargon without an everyday comparison, no formulas, " +
			"no long chains of reasoning, no violence or fear.",
		MaxSentencesPerPanel: 2,
		MaxWordsPerSentence:  12,
		ToneGuide:            "Curious and encouraging, like a favorite teacher on a field trip.",
		ExamplePanels: []string{
			"Sunlight is a mix of many colors. Blue bounces around the most!",
			"Tiny bits of air act like bumper cars for blue light.",
			"That is why the whole sky glows blue at noon.",
		},
	},
}

// AgeGroupOf 查找年龄段配置
func AgeGroupOf(a AgeGroup) (AgeGroupConfig, error) {
	cfg, ok := ageGroups[a]
	if !ok {
		return AgeGroupConfig{}, &ConfigKeyError{Kind: "age group", Key: string(a)}
	}
	return cfg, nil
}

// MustAgeGroupOf 查找年龄段配置，未知键 panic
func MustAgeGroupOf(a AgeGroup) AgeGroupConfig {
	cfg, err := AgeGroupOf(a)
	if err != nil {
		panic(err)
	}
	return cfg
}

// AudienceDirective 渲染受众约束段落
func AudienceDirective(a AgeGroup) string {
	cfg := MustAgeGroupOf(a)
	return fmt.Sprintf("# AUDIENCE CONSTRAINTS: %s\n%s\nAVOID: %s\nTONE GUIDE: %s",
		cfg.Label, cfg.Prompt, cfg.Negative, cfg.ToneGuide)
}

// AgeVisualGuide 渲染面向画面构图的年龄指引
func AgeVisualGuide(a AgeGroup) string {
	switch a {
	case AgeToddler:
		return "# AGE VISUAL GUIDE: " + MustAgeGroupOf(a).Label + "\n" +
			"- The main character fills 50-60% of the frame.\n" +
			"- Keep the character centered with one clear focal point.\n" +
			"- Use big simple shapes, at most three background objects.\n" +
			"- Faces are large and expressive, always smiling or curious."
	default:
		return "# AGE VISUAL GUIDE: " + MustAgeGroupOf(a).Label + "\n" +
			"- The main character fills 35-45% of the frame.\n" +
			"- Compose with the Rule of Thirds and leave room for the setting.\n" +
			"- Add a few discoverable details that support the explanation.\n" +
			"- Vary shot types across panels to keep the story moving."
	}
}
