package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/config"
	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/prompt"
)

func TestPrewarmConfigs(t *testing.T) {
	cfg := &config.Config{Pipeline: config.PipelineConfig{DefaultLanguage: "en"}}
	configs := PrewarmConfigs(cfg)

	require.Len(t, configs, len(catalog.AgeGroups())*len(catalog.Tones()))
	for _, c := range configs {
		assert.NoError(t, c.Validate())
	}
}

func TestProvidePromptCache(t *testing.T) {
	cfg := &config.Config{Prompts: config.PromptsConfig{StoryVersion: "v2.0", CacheSize: 10}}
	cache, err := ProvidePromptCache(cfg)
	require.NoError(t, err)

	assert.Equal(t, "v2.0", cache.Registry().ActiveVersion(prompt.StageStory))
	assert.Equal(t, prompt.DefaultVersion(prompt.StageLogic), cache.Registry().ActiveVersion(prompt.StageLogic))
	require.NoError(t, cache.Prewarm(PrewarmConfigs(&config.Config{Pipeline: config.PipelineConfig{DefaultLanguage: "en"}})))
}

func TestProvideBatchRendererOptional(t *testing.T) {
	assert.Nil(t, ProvideBatchRendererOptional(t.Context(), &config.Config{}, nil, nil))
}
