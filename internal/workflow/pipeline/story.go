package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/internal/workflow/safety"
	"logitoon-ai-api/internal/workflow/schema"
	"logitoon-ai-api/pkg/metrics"
)

var errMissingPanelsText = errors.New("output has no panels_text")

// StoryStage 根据逻辑蓝图写出分格叙述
type StoryStage struct{ stageBase }

// NewStoryStage 创建故事阶段
func NewStoryStage(prompts *prompt.Cache) *StoryStage {
	return &StoryStage{stageBase{prompts: prompts}}
}

func (s *StoryStage) Name() string { return NameStory }

func (s *StoryStage) ProgressMessage() string { return ProgressMessage(NameStory, "en") }

func (s *StoryStage) Run(ctx context.Context, in Context, call AICallFunc) Context {
	if in.Logic == nil {
		return in.fail("Story stage requires logic result")
	}
	out := in.withState(StateStoryRunning)

	vars := map[string]any{
		"topic":              in.Topic,
		"core_truth":         in.Logic.CoreTruth,
		"analogy_model":      in.Logic.AnalogyModel,
		"is_metaphor_needed": strconv.FormatBool(in.Logic.IsMetaphorNeeded),
		"forbidden_words":    strings.Join(forbiddenFor(in), ", "),
		"safety_note":        in.Logic.SafetyNote,
	}
	m, err := s.invoke(ctx, in, prompt.StageStory, NameStory, vars, call)
	if err != nil {
		return out.failErr(NameStory, err)
	}

	story, err := schema.ValidateStoryOutput(m)
	if err != nil {
		out.warn(err.Error())
		story = storyFromObject(m)
	}
	if len(story.PanelsText) == 0 {
		return out.failErr(NameStory, errMissingPanelsText)
	}

	out.Story = s.checkSafety(&out, story)
	return out
}

// forbiddenFor 合并逻辑阶段给出的禁用词与年龄/主题词表
func forbiddenFor(in Context) []string {
	words := append([]string{}, in.Logic.ForbiddenWords...)
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = true
	}
	for _, w := range catalog.ForbiddenWords(in.Config.AgeGroup, in.Config.Topic()) {
		if !seen[strings.ToLower(w)] {
			seen[strings.ToLower(w)] = true
			words = append(words, w)
		}
	}
	return words
}

// checkSafety 逐格检查，未通过的格改写一次后复检，仍未通过则记为警告
func (s *StoryStage) checkSafety(out *Context, story *model.StoryOutput) *model.StoryOutput {
	checked := *story
	checked.PanelsText = make([]model.PanelText, len(story.PanelsText))
	age := out.Config.AgeGroup
	results := make([]safety.Result, 0, len(story.PanelsText))

	for i, p := range story.PanelsText {
		text, res, corr := safety.CorrectAndValidate(p.Narrative, age)
		if corr.Changed() {
			p.Narrative = text
			out.validation().Corrections = append(out.validation().Corrections,
				fmt.Sprintf("panel %d: %s", p.PanelID, strings.Join(corr.Changes, ", ")))
			metrics.SafetyChecksTotal.WithLabelValues("story", "corrected").Inc()
		}
		if res.Passed {
			metrics.SafetyChecksTotal.WithLabelValues("story", "pass").Inc()
		} else {
			metrics.SafetyChecksTotal.WithLabelValues("story", "fail").Inc()
			out.warn(fmt.Sprintf("Story panel %d failed safety check (score %d): %s",
				p.PanelID, res.Score, strings.Join(res.Messages(), "; ")))
		}
		if fw := catalog.CheckForbiddenWords(p.Narrative, age); !fw.Clean {
			out.warn(fmt.Sprintf("Story panel %d uses words above the audience level: %s",
				p.PanelID, strings.Join(fw.FoundWords, ", ")))
		}
		checked.PanelsText[i] = p
		results = append(results, res)
	}

	agg := aggregate(results)
	out.validation().Story = &agg
	return &checked
}

// storyFromObject 结构校验失败时的宽松解码
func storyFromObject(m map[string]any) *model.StoryOutput {
	out := &model.StoryOutput{}
	out.Title, _ = stringField(m, "title")
	out.TopicSummary, _ = stringField(m, "topic_summary")
	out.EducationalSummary, _ = stringField(m, "educational_summary")
	for i, p := range objects(m, "panels_text") {
		id, ok := intField(p, "panel_id")
		if !ok {
			id = i + 1
		}
		pt := model.PanelText{PanelID: id}
		pt.Speaker, _ = stringField(p, "speaker")
		pt.Narrative, _ = stringField(p, "narrative")
		out.PanelsText = append(out.PanelsText, pt)
	}
	return out
}

// aggregate 取最低分并合并问题列表
func aggregate(results []safety.Result) safety.Result {
	agg := safety.Result{Passed: true, Score: 100, Issues: []safety.Issue{}, Suggestions: []string{}}
	for _, r := range results {
		agg.Passed = agg.Passed && r.Passed
		agg.Score = min(agg.Score, r.Score)
		agg.Issues = append(agg.Issues, r.Issues...)
		agg.Suggestions = append(agg.Suggestions, r.Suggestions...)
	}
	return agg
}
