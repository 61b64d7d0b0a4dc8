package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
)

func sampleComic() *model.Comic {
	return &model.Comic{
		ID:             "6f1c2a4e-1d0b-4d8e-9a31-0c6b3f6f2a10",
		Topic:          "Why is the sky blue?",
		Title:          "The Sky's Blue Hat",
		TargetAge:      catalog.AgeToddler,
		Tone:           catalog.ToneGentle,
		Character:      catalog.CharacterAnimal,
		Style:          catalog.StyleWatercolor,
		Language:       "en",
		ForbiddenWords: []string{"wavelength"},
		Panels: []model.ComicPanel{
			{PanelID: 1, Narrative: "Whoosh!"},
			{PanelID: 2, Narrative: "Splash!", ImageURL: "https://old"},
		},
		RenderStatus: model.RenderPending,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestComicRecordRoundTrip(t *testing.T) {
	c := sampleComic()

	rec := toRecord(c)
	assert.Equal(t, "toddler", rec.TargetAge)
	assert.Equal(t, "comics", rec.TableName())

	back := rec.toModel()
	assert.Equal(t, c, back)
}

func TestApplyImageKeys(t *testing.T) {
	c := sampleComic()

	out := applyImageKeys(c.Panels, map[int]string{2: "comics/x/panel-2.png", 9: "ignored"})

	require.Len(t, out, 2)
	assert.Empty(t, out[0].ImageKey)
	assert.Equal(t, "comics/x/panel-2.png", out[1].ImageKey)
	assert.Empty(t, out[1].ImageURL)
	assert.Equal(t, "https://old", c.Panels[1].ImageURL)
}
