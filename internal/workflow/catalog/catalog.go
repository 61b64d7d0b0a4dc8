// Package catalog 提供漫画生成所需的静态配置表与派生规则。
//
// 所有键都是封闭的字符串枚举，查找为 O(1) 的 map 读取；
// 未知键属于调用方契约错误，返回 *ConfigKeyError 或在 Must* 变体中 panic。
package catalog

import (
	"fmt"
	"strings"
)

// ConfigKeyError 未知配置键
type ConfigKeyError struct {
	Kind string
	Key  string
}

func (e *ConfigKeyError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Key)
}

// AgeGroup 目标年龄段
type AgeGroup string

const (
	AgeToddler    AgeGroup = "toddler"
	AgeElementary AgeGroup = "elementary"
)

// AgeGroups 返回全部年龄段
func AgeGroups() []AgeGroup { return []AgeGroup{AgeToddler, AgeElementary} }

func (a AgeGroup) Valid() bool {
	_, ok := ageGroups[a]
	return ok
}

// ParseAgeGroup 解析年龄段
func ParseAgeGroup(s string) (AgeGroup, error) {
	a := AgeGroup(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", &ConfigKeyError{Kind: "age group", Key: s}
	}
	return a, nil
}

// Tone 叙事语气
type Tone string

const (
	ToneHumorous   Tone = "humorous"
	ToneAdventure  Tone = "adventure"
	ToneGentle     Tone = "gentle"
	ToneScientific Tone = "scientific"
)

// Tones 返回全部语气
func Tones() []Tone { return []Tone{ToneHumorous, ToneAdventure, ToneGentle, ToneScientific} }

func (t Tone) Valid() bool {
	_, ok := tones[t]
	return ok
}

// ParseTone 解析语气
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ConfigKeyError{Kind: "tone", Key: s}
	}
	return t, nil
}

// CharacterType 主角原型
type CharacterType string

const (
	CharacterAuto   CharacterType = "auto"
	CharacterRobot  CharacterType = "robot"
	CharacterAnimal CharacterType = "animal"
	CharacterHuman  CharacterType = "human"
	CharacterAlien  CharacterType = "alien"
	CharacterObject CharacterType = "object"
)

// CharacterTypes 返回全部主角原型
func CharacterTypes() []CharacterType {
	return []CharacterType{CharacterAuto, CharacterRobot, CharacterAnimal, CharacterHuman, CharacterAlien, CharacterObject}
}

func (c CharacterType) Valid() bool {
	_, ok := characters[c]
	return ok
}

// ParseCharacterType 解析主角原型
func ParseCharacterType(s string) (CharacterType, error) {
	c := CharacterType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ConfigKeyError{Kind: "character type", Key: s}
	}
	return c, nil
}

// StyleKey 画风
type StyleKey string

const (
	Style3DClay      StyleKey = "3d-clay"
	StyleWatercolor  StyleKey = "watercolor"
	StyleGhibliAnime StyleKey = "ghibli-anime"
	StylePaperCutout StyleKey = "paper-cutout"
	StyleFlatVector  StyleKey = "flat-vector"
)

// StyleKeys 返回全部画风
func StyleKeys() []StyleKey {
	return []StyleKey{Style3DClay, StyleWatercolor, StyleGhibliAnime, StylePaperCutout, StyleFlatVector}
}

func (s StyleKey) Valid() bool {
	_, ok := styles[s]
	return ok
}

// ParseStyleKey 解析画风
func ParseStyleKey(s string) (StyleKey, error) {
	k := StyleKey(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", &ConfigKeyError{Kind: "style", Key: s}
	}
	return k, nil
}

// TopicCategory 主题类别，决定额外禁用词
type TopicCategory string

const (
	TopicPhysics    TopicCategory = "physics"
	TopicBiology    TopicCategory = "biology"
	TopicEmotions   TopicCategory = "emotions"
	TopicTechnology TopicCategory = "technology"
	TopicNature     TopicCategory = "nature"
	TopicGeneral    TopicCategory = "general"
)

// TopicCategories 返回全部主题类别
func TopicCategories() []TopicCategory {
	return []TopicCategory{TopicPhysics, TopicBiology, TopicEmotions, TopicTechnology, TopicNature, TopicGeneral}
}

func (t TopicCategory) Valid() bool {
	_, ok := topicForbidden[t]
	return ok
}

// ParseTopicCategory 解析主题类别，空串视为 general
func ParseTopicCategory(s string) (TopicCategory, error) {
	if strings.TrimSpace(s) == "" {
		return TopicGeneral, nil
	}
	t := TopicCategory(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ConfigKeyError{Kind: "topic category", Key: s}
	}
	return t, nil
}
