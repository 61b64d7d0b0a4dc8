// Package pipeline 将逻辑、故事、视觉（可选评审）阶段串联为一次漫画生成。
package pipeline

import (
	"context"
	"errors"
	"slices"

	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/safety"
)

// AICallFunc 调用一次大模型；schema 为期望的 JSON 输出结构，返回值可以是字符串、字节或已解析的对象
type AICallFunc func(ctx context.Context, systemPrompt, userPrompt string, schema map[string]any) (any, error)

// ProgressFunc 阶段开始时回调
type ProgressFunc func(stage, message string)

// State 流水线状态
type State string

const (
	StateIdle          State = "idle"
	StateLogicRunning  State = "logic_running"
	StateStoryRunning  State = "story_running"
	StateVisualRunning State = "visual_running"
	StateCriticRunning State = "critic_running"
	StateComplete      State = "complete"
	StateFailed        State = "failed"
)

// Validation 安全检查汇总
type Validation struct {
	Story       *safety.Result `json:"story,omitempty"`
	Visual      *safety.Result `json:"visual,omitempty"`
	Corrections []string       `json:"corrections,omitempty"`
}

func (v *Validation) clone() *Validation {
	if v == nil {
		return nil
	}
	out := *v
	out.Corrections = slices.Clone(v.Corrections)
	return &out
}

// Context 流水线在阶段间传递的值；阶段总是返回新的 Context
type Context struct {
	Topic      string              `json:"topic"`
	Config     prompt.Config       `json:"config"`
	Logic      *model.LogicOutput  `json:"logic,omitempty"`
	Story      *model.StoryOutput  `json:"story,omitempty"`
	Visual     *model.VisualOutput `json:"visual,omitempty"`
	Critic     *model.CriticOutput `json:"critic,omitempty"`
	Errors     []string            `json:"errors,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
	Validation *Validation         `json:"validation,omitempty"`
	State      State               `json:"state"`

	cause error
}

// NewContext 创建初始上下文
func NewContext(topic string, cfg prompt.Config) Context {
	return Context{Topic: topic, Config: cfg, State: StateIdle}
}

// Failed 是否出现了硬错误
func (c Context) Failed() bool {
	return len(c.Errors) > 0
}

// Complete 是否成功跑完
func (c Context) Complete() bool {
	return c.State == StateComplete && !c.Failed()
}

// clone 复制切片与校验结果；阶段输出只整体替换，不原地修改
func (c Context) clone() Context {
	out := c
	out.Errors = slices.Clone(c.Errors)
	out.Warnings = slices.Clone(c.Warnings)
	out.Validation = c.Validation.clone()
	return out
}

func (c Context) withState(s State) Context {
	out := c.clone()
	out.State = s
	return out
}

func (c Context) fail(msg string) Context {
	out := c.clone()
	out.Errors = append(out.Errors, msg)
	out.State = StateFailed
	return out
}

// failErr 记录阶段错误并保留底层错误供调用方分类
func (c Context) failErr(stage string, err error) Context {
	out := c.fail(stageFailed(stage, err))
	if out.cause == nil {
		out.cause = err
	}
	return out
}

// Err 返回第一个硬错误的底层错误；只有字符串错误时返回以其为内容的错误
func (c Context) Err() error {
	switch {
	case c.cause != nil:
		return c.cause
	case len(c.Errors) > 0:
		return errors.New(c.Errors[0])
	default:
		return nil
	}
}

func (c *Context) warn(msgs ...string) {
	c.Warnings = append(c.Warnings, msgs...)
}

func (c *Context) validation() *Validation {
	if c.Validation == nil {
		c.Validation = &Validation{}
	}
	return c.Validation
}
