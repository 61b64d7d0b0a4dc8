package catalog

import "fmt"

// CharacterConfig 主角原型指令
type CharacterConfig struct {
	Label     string
	Emoji     string
	Guideline string
}

var characters = map[CharacterType]CharacterConfig{
	CharacterAuto: {
		Label:     "Auto",
		Emoji:     "🎬",
		Guideline: "Choose the guide character that best fits the topic. Keep the same character in every panel.",
	},
	CharacterRobot: {
		Label:     "Robot",
		Emoji:     "🤖",
		Guideline: "A small round robot with big screen eyes and soft pastel panels. Curious, clumsy and kind.",
	},
	CharacterAnimal: {
		Label:     "Animal",
		Emoji:     "🦊",
		Guideline: "A fluffy young fox with oversized ears and a bushy tail. Brave, playful and always sniffing out answers.",
	},
	CharacterHuman: {
		Label:     "Human",
		Emoji:     "🧒",
		Guideline: "A cheerful child explorer in a bright raincoat and rain boots. Asks questions out loud and points at things.",
	},
	CharacterAlien: {
		Label:     "Alien",
		Emoji:     "👽",
		Guideline: "A friendly green visitor with one wobbly antenna who sees Earth for the first time. Everything amazes it.",
	},
	CharacterObject: {
		Label:     "Everyday Object",
		Emoji:     "🔮",
		Guideline: "A living everyday object connected to the topic, with a tiny face and stubby arms. It explains from its own point of view.",
	},
}

// CharacterOf 查找主角原型配置
func CharacterOf(c CharacterType) (CharacterConfig, error) {
	cfg, ok := characters[c]
	if !ok {
		return CharacterConfig{}, &ConfigKeyError{Kind: "character type", Key: string(c)}
	}
	return cfg, nil
}

// MustCharacterOf 查找主角原型配置，未知键 panic
func MustCharacterOf(c CharacterType) CharacterConfig {
	cfg, err := CharacterOf(c)
	if err != nil {
		panic(err)
	}
	return cfg
}

// CharacterGuideline 渲染主角原型段落
func CharacterGuideline(c CharacterType) string {
	cfg := MustCharacterOf(c)
	return fmt.Sprintf("# CHARACTER ARCHETYPE: %s %s\n%s", cfg.Emoji, cfg.Label, cfg.Guideline)
}
