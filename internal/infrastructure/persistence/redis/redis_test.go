package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
)

func TestStoryKey(t *testing.T) {
	cfg := prompt.Config{
		AgeGroup:  catalog.AgeToddler,
		Tone:      catalog.ToneGentle,
		Character: catalog.CharacterAnimal,
		Style:     catalog.StyleWatercolor,
		Language:  "en",
	}

	key := StoryKey("  Why is the   Sky Blue? ", cfg)
	assert.Equal(t, "comic:topic:why is the sky blue?:toddler:gentle:animal:watercolor:en:general", key)
	assert.Equal(t, key, StoryKey("why is the sky blue?", cfg))

	cfg.Tone = catalog.ToneScientific
	assert.NotEqual(t, key, StoryKey("why is the sky blue?", cfg))
}

func TestBuildRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:10.0.0.1:/v1/comics", BuildRateLimitKey("10.0.0.1", "/v1/comics"))
}

func TestNewStoryCacheDefaultsTTL(t *testing.T) {
	assert.Equal(t, DefaultStoryTTL, NewStoryCache(nil, 0).ttl)
}

func TestIsNil(t *testing.T) {
	assert.False(t, IsNil(nil))
}

func TestStoryCacheCoalesce_FollowersAreCached(t *testing.T) {
	c := NewStoryCache(nil, time.Minute)
	ctx := context.Background()

	var (
		mu        sync.Mutex
		lookups   int
		generates int
		stored    []*model.Comic
	)
	entered := make(chan struct{})
	followerWaiting := make(chan struct{})
	release := make(chan struct{})

	lookup := func(context.Context) (*model.Comic, bool) {
		mu.Lock()
		defer mu.Unlock()
		lookups++
		if lookups == 3 {
			close(followerWaiting)
		}
		if len(stored) > 0 {
			return stored[0].Clone(), true
		}
		return nil, false
	}
	generate := func(context.Context) (*model.Comic, error) {
		mu.Lock()
		generates++
		mu.Unlock()
		close(entered)
		<-release
		return &model.Comic{ID: "c1", Panels: []model.ComicPanel{{PanelID: 1}}}, nil
	}
	store := func(_ context.Context, cm *model.Comic) {
		mu.Lock()
		defer mu.Unlock()
		stored = append(stored, cm.Clone())
	}

	type outcome struct {
		comic  *model.Comic
		cached bool
		err    error
	}
	results := make(chan outcome, 2)
	run := func() {
		cm, cached, err := c.coalesce(ctx, "comic:topic:sky", lookup, generate, store)
		results <- outcome{cm, cached, err}
	}

	go run()
	<-entered
	go run()
	<-followerWaiting
	time.Sleep(20 * time.Millisecond)
	close(release)

	a, b := <-results, <-results
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.NotEqual(t, a.cached, b.cached, "exactly one caller generates")
	assert.Equal(t, "c1", a.comic.ID)
	assert.Equal(t, "c1", b.comic.ID)
	assert.NotSame(t, a.comic, b.comic)

	a.comic.Panels[0].ImageURL = "https://cdn.test/1.png"
	assert.Empty(t, b.comic.Panels[0].ImageURL)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, generates)
	assert.Len(t, stored, 1)
}

func TestStoryCacheCoalesce_HitSkipsGenerate(t *testing.T) {
	c := NewStoryCache(nil, time.Minute)
	hit := &model.Comic{ID: "c9"}

	cm, cached, err := c.coalesce(context.Background(), "k",
		func(context.Context) (*model.Comic, bool) { return hit, true },
		func(context.Context) (*model.Comic, error) { t.Fatal("generate must not run"); return nil, nil },
		func(context.Context, *model.Comic) { t.Fatal("store must not run") },
	)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "c9", cm.ID)
}
