package prompt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "logitoon-ai-api/pkg/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(ActiveVersions{})
	require.NoError(t, err)
	return r
}

func TestRegistryDefaultsToNewest(t *testing.T) {
	r := newTestRegistry(t)

	tests := map[Stage]string{
		StageLogic:  "v3.0",
		StageStory:  "v4.0",
		StageVisual: "v7.0",
		StageCritic: "v3.0",
	}
	for stage, want := range tests {
		vp, err := r.PromptVersion(stage)
		require.NoError(t, err)
		assert.Equal(t, want, vp.Version, stage)
		assert.NotEmpty(t, vp.Prompt, stage)
		assert.NotEmpty(t, vp.ReleaseDate, stage)
	}
}

func TestRegistryAllVersionsInRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{"v1.0", "v1.1", "v2.0", "v3.0"}, r.AllVersions(StageLogic))
	assert.Equal(t, []string{"v1.0", "v2.0", "v3.0", "v4.0", "v4.1", "v5.0", "v6.0", "v7.0"}, r.AllVersions(StageVisual))
	assert.Empty(t, r.AllVersions("layout"))
}

func TestRegistryOverrides(t *testing.T) {
	r, err := NewRegistry(ActiveVersions{Story: "v2.0", Visual: "v99"})
	require.NoError(t, err)

	assert.Equal(t, "v2.0", r.ActiveVersion(StageStory))
	assert.Equal(t, "v7.0", r.ActiveVersion(StageVisual), "unknown override falls back to default")
}

func TestRegistryActivateNeverMutatesVersions(t *testing.T) {
	r := newTestRegistry(t)
	before, err := r.PromptVersion(StageStory)
	require.NoError(t, err)

	require.NoError(t, r.Activate(StageStory, "v1.0"))
	old, err := r.PromptVersion(StageStory)
	require.NoError(t, err)
	assert.Equal(t, "v1.0", old.Version)
	assert.NotEqual(t, before.Prompt, old.Prompt)

	require.NoError(t, r.Activate(StageStory, "v4.0"))
	again, err := r.PromptVersion(StageStory)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	err = r.Activate(StageStory, "v9.9")
	assert.ErrorIs(t, err, apperrors.ErrPromptVersionNotFound)
	err = r.Activate("layout", "v1.0")
	assert.ErrorIs(t, err, apperrors.ErrUnknownStage)
}

func TestRegistryUnknownStage(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Prompt("layout")
	assert.ErrorIs(t, err, apperrors.ErrUnknownStage)

	_, err = ParseStage("Visual")
	assert.NoError(t, err)
	_, err = ParseStage("layout")
	assert.Error(t, err)
}

func TestRegistryUserPrompt(t *testing.T) {
	r := newTestRegistry(t)
	out, err := r.UserPrompt(context.Background(), StageLogic, map[string]any{
		"topic":          "Why is the sky blue?",
		"language_name":  "English",
		"topic_category": "physics",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Topic: Why is the sky blue?")
	assert.Contains(t, out, "Topic category: physics")
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				_ = r.Activate(StageVisual, "v6.0")
			}
			_, err := r.Prompt(StageVisual)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
