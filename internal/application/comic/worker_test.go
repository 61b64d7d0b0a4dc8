package comic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/infrastructure/messaging"
	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
)

func TestRenderJobHandler(t *testing.T) {
	repo := newMemRepo()
	require.NoError(t, repo.Save(context.Background(), &model.Comic{
		ID:     "c1",
		Style:  catalog.StyleWatercolor,
		Panels: []model.ComicPanel{{PanelID: 1, VisualPrompt: "a"}, {PanelID: 2, VisualPrompt: "b"}},
	}))
	store := newMemStore()
	handle := RenderJobHandler(NewBatchRenderer(&fakeRenderer{}, store, repo, 2, 0))

	err := handle(context.Background(), &messaging.RenderJobMessage{JobID: "j1", ComicID: "c1", PanelIDs: []int{2}})
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, stored.Panels[0].ImageKey)
	assert.Equal(t, "comics/c1/panel-02.png", stored.Panels[1].ImageKey)
	assert.Equal(t, model.RenderDone, stored.RenderStatus)
}

func TestRenderJobHandler_ErrorsClassifyForRetry(t *testing.T) {
	repo := newMemRepo()
	require.NoError(t, repo.Save(context.Background(), &model.Comic{
		ID:     "c1",
		Style:  catalog.StyleWatercolor,
		Panels: []model.ComicPanel{{PanelID: 1, VisualPrompt: "a"}},
	}))

	ok := RenderJobHandler(NewBatchRenderer(&fakeRenderer{}, newMemStore(), repo, 2, 0))

	err := ok(context.Background(), &messaging.RenderJobMessage{JobID: "j1", ComicID: "gone"})
	require.Error(t, err)
	assert.False(t, messaging.Retryable(err))

	err = ok(context.Background(), &messaging.RenderJobMessage{JobID: "j2", ComicID: "c1", PanelIDs: []int{9}})
	require.Error(t, err)
	assert.False(t, messaging.Retryable(err))

	failing := RenderJobHandler(NewBatchRenderer(&fakeRenderer{failOn: "ACTION"}, newMemStore(), repo, 2, 0))
	err = failing(context.Background(), &messaging.RenderJobMessage{JobID: "j3", ComicID: "c1"})
	require.Error(t, err)
	assert.True(t, messaging.Retryable(err))
}
