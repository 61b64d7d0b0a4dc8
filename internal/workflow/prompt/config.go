package prompt

import (
	"strings"

	"logitoon-ai-api/internal/workflow/catalog"
	apperrors "logitoon-ai-api/pkg/errors"
)

// Config 构建提示词所需的完整配置
type Config struct {
	AgeGroup      catalog.AgeGroup      `json:"age_group"`
	Tone          catalog.Tone          `json:"tone"`
	Character     catalog.CharacterType `json:"character"`
	Style         catalog.StyleKey      `json:"style"`
	Language      string                `json:"language"`
	TopicCategory catalog.TopicCategory `json:"topic_category,omitempty"`
}

// ConfigPatch 部分覆盖，nil 字段保持原值
type ConfigPatch struct {
	AgeGroup      *catalog.AgeGroup
	Tone          *catalog.Tone
	Character     *catalog.CharacterType
	Style         *catalog.StyleKey
	Language      *string
	TopicCategory *catalog.TopicCategory
}

// Merge 返回浅合并后的新配置
func (c Config) Merge(p ConfigPatch) Config {
	if p.AgeGroup != nil {
		c.AgeGroup = *p.AgeGroup
	}
	if p.Tone != nil {
		c.Tone = *p.Tone
	}
	if p.Character != nil {
		c.Character = *p.Character
	}
	if p.Style != nil {
		c.Style = *p.Style
	}
	if p.Language != nil {
		c.Language = *p.Language
	}
	if p.TopicCategory != nil {
		c.TopicCategory = *p.TopicCategory
	}
	return c
}

// Validate 校验所有枚举键
func (c Config) Validate() error {
	var bad []string
	if !c.AgeGroup.Valid() {
		bad = append(bad, "age_group="+string(c.AgeGroup))
	}
	if !c.Tone.Valid() {
		bad = append(bad, "tone="+string(c.Tone))
	}
	if !c.Character.Valid() {
		bad = append(bad, "character="+string(c.Character))
	}
	if !c.Style.Valid() {
		bad = append(bad, "style="+string(c.Style))
	}
	if c.TopicCategory != "" && !c.TopicCategory.Valid() {
		bad = append(bad, "topic_category="+string(c.TopicCategory))
	}
	if len(bad) > 0 {
		return apperrors.New(apperrors.CodeUnknownConfigKey, "unknown config key").WithDetail(strings.Join(bad, ", "))
	}
	return nil
}

// Topic 主题类别，空值视为 general
func (c Config) Topic() catalog.TopicCategory {
	if c.TopicCategory == "" {
		return catalog.TopicGeneral
	}
	return c.TopicCategory
}

// CacheKey stage:age:tone:character:style:language:topic
func (c Config) CacheKey(s Stage) string {
	return strings.Join([]string{
		string(s),
		string(c.AgeGroup),
		string(c.Tone),
		string(c.Character),
		string(c.Style),
		c.Language,
		string(c.Topic()),
	}, ":")
}
