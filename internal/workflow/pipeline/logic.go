package pipeline

import (
	"context"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/schema"
)

// LogicStage 提炼核心事实与类比
type LogicStage struct{ stageBase }

// NewLogicStage 创建逻辑阶段
func NewLogicStage(prompts *prompt.Cache) *LogicStage {
	return &LogicStage{stageBase{prompts: prompts}}
}

func (s *LogicStage) Name() string { return NameLogic }

func (s *LogicStage) ProgressMessage() string { return ProgressMessage(NameLogic, "en") }

func (s *LogicStage) Run(ctx context.Context, in Context, call AICallFunc) Context {
	out := in.withState(StateLogicRunning)

	vars := map[string]any{
		"topic":          in.Topic,
		"language_name":  catalog.LanguageName(in.Config.Language),
		"topic_category": string(in.Config.Topic()),
	}
	m, err := s.invoke(ctx, in, prompt.StageLogic, NameLogic, vars, call)
	if err != nil {
		return out.failErr(NameLogic, err)
	}

	if _, err := schema.ValidateLogicOutput(m); err != nil {
		out.warn(err.Error())
	}
	logic, warnings := logicFromObject(m, in.Config.Language)
	out.warn(warnings...)
	out.Logic = logic
	return out
}

// logicFromObject 宽松解码，缺失字段统一取默认值并记录警告
func logicFromObject(m map[string]any, language string) (*model.LogicOutput, []string) {
	var warnings []string
	missing := func(field string) {
		warnings = append(warnings, "Logic output missing "+field+", using default")
	}

	out := &model.LogicOutput{IsMetaphorNeeded: true}
	if v, ok := stringField(m, "detected_language"); ok && v != "" {
		out.DetectedLanguage = v
	} else {
		out.DetectedLanguage = language
		missing("detected_language")
	}
	if v, ok := stringField(m, "core_truth"); ok {
		out.CoreTruth = v
	} else {
		missing("core_truth")
	}
	if v, ok := stringField(m, "analogy_model"); ok {
		out.AnalogyModel = v
	} else {
		missing("analogy_model")
	}
	if v, ok := m["is_metaphor_needed"].(bool); ok {
		out.IsMetaphorNeeded = v
	} else {
		missing("is_metaphor_needed")
	}
	if v, ok := stringsField(m, "forbidden_words"); ok {
		out.ForbiddenWords = v
	} else {
		out.ForbiddenWords = []string{}
		missing("forbidden_words")
	}
	out.SafetyNote, _ = stringField(m, "safety_note")
	return out, warnings
}
