package catalog

import "fmt"

// ToneConfig 语气指令
type ToneConfig struct {
	Label     string
	Emoji     string
	Directive string
}

var tones = map[Tone]ToneConfig{
	ToneHumorous: {
		Label:     "Humorous",
		Emoji:     "😄",
		Directive: "Add gentle slapstick and silly surprises. Let the character make a harmless mistake and laugh about it. Jokes never target the reader.",
	},
	ToneAdventure: {
		Label:     "Adventure",
		Emoji:     "🗺️",
		Directive: "Frame the explanation as a small quest with a goal, a discovery and a happy return home. Keep the stakes cozy, never dangerous.",
	},
	ToneGentle: {
		Label:     "Gentle",
		Emoji:     "🌸",
		Directive: "Use a calm, soothing rhythm. Favor soft verbs and cozy images. End each panel on a reassuring note.",
	},
	ToneScientific: {
		Label:     "Scientific",
		Emoji:     "🔬",
		Directive: "Invite the reader to observe, guess and check. Name one real thing to notice in each panel while keeping the words simple.",
	},
}

// ToneOf 查找语气配置
func ToneOf(t Tone) (ToneConfig, error) {
	cfg, ok := tones[t]
	if !ok {
		return ToneConfig{}, &ConfigKeyError{Kind: "tone", Key: string(t)}
	}
	return cfg, nil
}

// MustToneOf 查找语气配置，未知键 panic
func MustToneOf(t Tone) ToneConfig {
	cfg, err := ToneOf(t)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ToneDirective 渲染语气段落
func ToneDirective(t Tone) string {
	cfg := MustToneOf(t)
	return fmt.Sprintf("# TONE: %s %s\n%s", cfg.Emoji, cfg.Label, cfg.Directive)
}
