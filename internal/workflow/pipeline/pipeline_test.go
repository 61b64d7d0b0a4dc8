package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
)

type scriptedCall struct {
	mu        sync.Mutex
	responses []any
	errs      []error
	calls     int
	systems   []string
	users     []string
	schemas   []map[string]any
}

func (s *scriptedCall) call(_ context.Context, system, user string, schema map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.systems = append(s.systems, system)
	s.users = append(s.users, user)
	s.schemas = append(s.schemas, schema)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return nil, errors.New("unexpected call")
}

const logicPayload = `{
  "detected_language": "en",
  "core_truth": "Sunlight has every color and the air bounces blue around the most.",
  "analogy_model": "Bouncing balls in a playground",
  "is_metaphor_needed": true,
  "forbidden_words": ["wavelength", "scattering"]
}`

const storyPayload = "```json\n" + `{
  "title": "The Sky's Blue Hat",
  "topic_summary": "Sunlight bounces around and blue bounces the most.",
  "panels_text": [
    {"panel_id": 1, "speaker": "Fox", "narrative": "Whoosh, the happy sun says hello!"},
    {"panel_id": 2, "speaker": "Fox", "narrative": "Splash, blue light loves to play!"},
    {"panel_id": 3, "speaker": "Fox", "narrative": "Yay, the sky wears a happy blue hat!"}
  ],
  "educational_summary": "Sunlight has many colors and blue bounces around the sky the most."
}` + "\n```"

func visualPayload() map[string]any {
	panel := func(id int, prompt string) map[string]any {
		return map[string]any{
			"panel_id":      id,
			"shot_type":     "Medium Shot",
			"composition":   "Centered",
			"location":      "Sunny meadow",
			"lighting_mood": "Soft morning light",
			"visual_prompt": prompt,
		}
	}
	return map[string]any{
		"style_preset":          "watercolor",
		"character_anchor":      "A small round fox with a fluffy orange tail",
		"main_character_prompt": "child-friendly small round fox, bright pastel orange fur, cute smile",
		"setting":               "A sunny meadow",
		"color_palette":         "pastel blue and warm yellow",
		"panels": []any{
			panel(1, "child-friendly watercolor, a cute round fox waves at the bright morning sun"),
			panel(2, "child-friendly watercolor, round fox chasing bright pastel light ribbons"),
			panel(3, "child-friendly watercolor, cute fox under a bright blue sky wearing a cloud hat"),
		},
	}
}

func newTestRunner(t *testing.T, opts ...RunnerOption) *Runner {
	t.Helper()
	reg, err := prompt.NewRegistry(prompt.ActiveVersions{})
	require.NoError(t, err)
	cache, err := prompt.NewCache(reg)
	require.NoError(t, err)
	return NewRunner(cache, opts...)
}

func skyConfig() prompt.Config {
	return prompt.Config{
		AgeGroup:  catalog.AgeToddler,
		Tone:      catalog.ToneGentle,
		Character: catalog.CharacterAnimal,
		Style:     catalog.StyleWatercolor,
		Language:  "en",
	}
}

func TestRunEndToEnd(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{logicPayload, storyPayload, visualPayload()}}

	var progress []string
	out := r.Run(context.Background(), "Why is the sky blue?", skyConfig(), fake.call, func(stage, msg string) {
		progress = append(progress, stage+": "+msg)
	})

	require.Empty(t, out.Errors)
	assert.Equal(t, StateComplete, out.State)
	assert.True(t, out.Complete())
	require.NotNil(t, out.Logic)
	require.NotNil(t, out.Story)
	require.NotNil(t, out.Visual)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, []string{
		"Logic: Analyzing topic...",
		"Story: Writing narrative...",
		"Visual: Directing visuals...",
	}, progress)

	visualIDs := map[int]bool{}
	for _, p := range out.Visual.Panels {
		visualIDs[p.PanelID] = true
	}
	for _, p := range out.Story.PanelsText {
		assert.True(t, visualIDs[p.PanelID], "panel %d has no visual", p.PanelID)
	}

	assert.Contains(t, fake.users[0], "Why is the sky blue?")
	assert.Contains(t, fake.users[1], "Bouncing balls in a playground")
	assert.Contains(t, fake.users[2], `"panel_id":2`)
	assert.Equal(t, "object", fake.schemas[1]["type"])

	require.NotNil(t, out.Validation)
	require.NotNil(t, out.Validation.Story)
	assert.True(t, out.Validation.Story.Passed)
	assert.True(t, out.Validation.Visual.Passed)

	comic, reports := BuildComic(out)
	require.NotNil(t, comic)
	assert.Empty(t, reports)
	assert.Equal(t, "The Sky's Blue Hat", comic.Title)
	assert.Equal(t, catalog.AgeToddler, comic.TargetAge)
	assert.Equal(t, "watercolor", comic.StylePreset)
	assert.Equal(t, model.RenderNotQueued, comic.RenderStatus)
	assert.Len(t, comic.Panels, 3)
	assert.NotEmpty(t, comic.ID)
}

func TestRunHaltsOnStageFailure(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{
		responses: []any{logicPayload},
		errs:      []error{nil, errors.New("upstream timeout")},
	}

	out := r.Run(context.Background(), "Why is the sky blue?", skyConfig(), fake.call, nil)

	require.NotNil(t, out.Logic)
	assert.Nil(t, out.Story)
	assert.Nil(t, out.Visual)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "Story stage failed: upstream timeout", out.Errors[0])
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 2, fake.calls)
}

func TestRunRejectsUnknownConfig(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{}
	cfg := skyConfig()
	cfg.Tone = "grim"

	out := r.Run(context.Background(), "Why is the sky blue?", cfg, fake.call, nil)

	assert.True(t, out.Failed())
	assert.Equal(t, 0, fake.calls)
}

func TestLogicStageDefaultsMissingFields(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{`{"core_truth": "Blue light bounces the most in the air."}`}}

	out := NewLogicStage(r.prompts).Run(context.Background(), NewContext("sky", skyConfig()), fake.call)

	require.Empty(t, out.Errors)
	require.NotNil(t, out.Logic)
	assert.Equal(t, "en", out.Logic.DetectedLanguage)
	assert.True(t, out.Logic.IsMetaphorNeeded)
	assert.Equal(t, []string{}, out.Logic.ForbiddenWords)
	assert.Contains(t, out.Warnings, "Logic output missing forbidden_words, using default")
	assert.Contains(t, out.Warnings[0], "Invalid Logic Agent output")
}

func TestLogicStageMalformedOutputIsHardError(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{"I'd rather tell you a story."}}

	out := NewLogicStage(r.prompts).Run(context.Background(), NewContext("sky", skyConfig()), fake.call)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "Logic stage failed: malformed Logic output")
	assert.Nil(t, out.Logic)
}

func TestStageInputNotMutated(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{logicPayload}}
	in := NewContext("sky", skyConfig())
	in.Warnings = []string{"earlier"}

	out := NewLogicStage(r.prompts).Run(context.Background(), in, fake.call)

	assert.Nil(t, in.Logic)
	assert.Equal(t, StateIdle, in.State)
	assert.Equal(t, []string{"earlier"}, in.Warnings)
	assert.NotNil(t, out.Logic)
}

func TestStoryAndVisualRequirePreviousStage(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{}
	in := NewContext("sky", skyConfig())

	story := NewStoryStage(r.prompts).Run(context.Background(), in, fake.call)
	assert.Equal(t, []string{"Story stage requires logic result"}, story.Errors)

	visual := NewVisualStage(r.prompts).Run(context.Background(), in, fake.call)
	assert.Equal(t, []string{"Visual stage requires story result"}, visual.Errors)
	assert.Equal(t, 0, fake.calls)
}

func TestStoryStageCorrectsUnsafePanel(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{logicPayload, map[string]any{
		"title":         "Brave Fox",
		"topic_summary": "A fox learns about the sky.",
		"panels_text": []any{
			map[string]any{"panel_id": 1, "narrative": "Whoosh, the scary wind is fun!"},
		},
		"educational_summary": "Wind moves air from place to place.",
	}}}

	out := r.RunPartial(context.Background(), NewContext("wind", skyConfig()),
		[]Stage{NewLogicStage(r.prompts), NewStoryStage(r.prompts)}, fake.call, nil)

	require.Empty(t, out.Errors)
	assert.Equal(t, "Whoosh, the surprising wind is fun!", out.Story.PanelsText[0].Narrative)
	require.NotNil(t, out.Validation)
	assert.Len(t, out.Validation.Corrections, 1)
	assert.True(t, out.Validation.Story.Passed)
}

func TestStoryStageMissingPanels(t *testing.T) {
	r := newTestRunner(t)
	fake := &scriptedCall{responses: []any{logicPayload, `{"title": "Sky"}`}}

	out := r.Run(context.Background(), "sky", skyConfig(), fake.call, nil)

	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "Story stage failed: output has no panels_text", out.Errors[0])
	assert.NotEmpty(t, out.Warnings)
}

func TestVisualStagePrefixesUnsafePrompts(t *testing.T) {
	r := newTestRunner(t)
	v := visualPayload()
	v["panels"].([]any)[0].(map[string]any)["visual_prompt"] = "a spooky forest with a fox"
	fake := &scriptedCall{responses: []any{logicPayload, storyPayload, v}}

	out := r.Run(context.Background(), "sky", skyConfig(), fake.call, nil)

	require.Empty(t, out.Errors)
	assert.Equal(t, catalog.ChildSafePrefix+" a forest with a fox", out.Visual.Panels[0].VisualPrompt)
	assert.Contains(t, out.Validation.Corrections, "panel 1: added child-safe prefix")
}

func TestCriticStageAppliesRevisions(t *testing.T) {
	r := newTestRunner(t, WithCritic(true))
	critic := map[string]any{
		"review_summary": map[string]any{"panels_reviewed": 3, "issues_found": 1, "issues_fixed": 1, "flow_score": 88},
		"flow_analysis":  []any{map[string]any{"transition": "1→2", "verdict": "ok"}},
		"revised_panels": []any{map[string]any{"panel_id": 2, "shot_type": "Close-up"}},
	}
	fake := &scriptedCall{responses: []any{logicPayload, storyPayload, visualPayload(), critic}}

	out := r.Run(context.Background(), "sky", skyConfig(), fake.call, nil)

	require.Empty(t, out.Errors)
	require.NotNil(t, out.Critic)
	assert.Equal(t, 4, fake.calls)
	assert.Equal(t, "Close-up", out.Visual.Panels[1].ShotType)
	assert.Equal(t, "Centered", out.Visual.Panels[1].Composition)
	assert.Equal(t, "Medium Shot", out.Visual.Panels[0].ShotType)
}

func TestCriticFailureIsOnlyAWarning(t *testing.T) {
	r := newTestRunner(t, WithCritic(true))
	fake := &scriptedCall{
		responses: []any{logicPayload, storyPayload, visualPayload()},
		errs:      []error{nil, nil, nil, errors.New("critic offline")},
	}

	out := r.Run(context.Background(), "sky", skyConfig(), fake.call, nil)

	assert.Empty(t, out.Errors)
	assert.Equal(t, StateComplete, out.State)
	assert.Contains(t, out.Warnings, "Critic stage skipped: critic offline")
}

func TestMergePanelsFallbacks(t *testing.T) {
	story := &model.StoryOutput{
		TopicSummary: "why leaves fall",
		PanelsText: []model.PanelText{
			{PanelID: 1, Narrative: "one"},
			{PanelID: 2, Narrative: "two"},
			{PanelID: 3, Narrative: "three"},
		},
	}
	visual := &model.VisualOutput{
		Setting: "An autumn park",
		Panels: []model.VisualPanel{
			{PanelID: 1, ShotType: "Close-up", VisualPrompt: "leaf close-up"},
			{PanelID: 7, Location: "Riverbank", VisualPrompt: "leaf on water"},
		},
	}

	panels, reports := MergePanels(story, visual, skyConfig())

	require.Len(t, panels, 3)
	assert.Equal(t, "Close-up", panels[0].ShotType)
	assert.Equal(t, "Rule of Thirds", panels[0].Composition)
	assert.Equal(t, "An autumn park", panels[0].Location)

	assert.Equal(t, "leaf on water", panels[1].VisualPrompt)
	assert.Equal(t, "Riverbank", panels[1].Location)

	assert.Equal(t, "Wide Shot", panels[2].ShotType)
	assert.Equal(t, "Warm Golden Hour", panels[2].LightingMood)
	assert.Equal(t, "A cute animal interacting with why leaves fall", panels[2].VisualPrompt)
	assert.Len(t, reports, 2)
}

func TestProgressMessageLocalized(t *testing.T) {
	assert.Equal(t, "이야기를 쓰고 있어요...", ProgressMessage(NameStory, "ko"))
	assert.Equal(t, "テーマを分析しています...", ProgressMessage(NameLogic, "JA"))
	assert.Equal(t, "Directing visuals...", ProgressMessage(NameVisual, "fr"))
}

func TestContextErrKeepsCause(t *testing.T) {
	r := newTestRunner(t)
	cause := errors.New("quota exhausted")
	fake := &scriptedCall{errs: []error{cause}}

	out := r.Run(context.Background(), "sky", skyConfig(), fake.call, nil)

	assert.ErrorIs(t, out.Err(), cause)
	assert.Nil(t, NewContext("sky", skyConfig()).Err())
}
