package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/workflow/catalog"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, opts ...CacheOption) *Cache {
	t.Helper()
	c, err := NewCache(newTestRegistry(t), opts...)
	require.NoError(t, err)
	return c
}

func TestCacheBuildsOncePerKey(t *testing.T) {
	c := newTestCache(t)

	first, err := c.Get(toddlerConfig(), StageStory)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Get(toddlerConfig(), StageStory)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Builds)
	assert.EqualValues(t, 5, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, DefaultCacheSize, stats.MaxSize)
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 12, 12, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(t, WithTTL(time.Minute), WithClock(clock.Now))

	_, err := c.Get(toddlerConfig(), StageLogic)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = c.Get(toddlerConfig(), StageLogic)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Stats().Builds)

	clock.Advance(time.Minute)
	_, err = c.Get(toddlerConfig(), StageLogic)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.Stats().Builds)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, WithMaxSize(2))
	cfg := toddlerConfig()

	_, _ = c.Get(cfg, StageLogic)
	_, _ = c.Get(cfg, StageStory)
	_, _ = c.Get(cfg, StageLogic) // logic 变为最近使用
	_, _ = c.Get(cfg, StageVisual)

	assert.Equal(t, 2, c.Stats().Size)
	builds := c.Stats().Builds
	_, _ = c.Get(cfg, StageLogic)
	assert.Equal(t, builds, c.Stats().Builds)
	_, _ = c.Get(cfg, StageStory)
	assert.Equal(t, builds+1, c.Stats().Builds)
}

func TestCacheActivateInvalidates(t *testing.T) {
	c := newTestCache(t)
	before, err := c.Get(toddlerConfig(), StageVisual)
	require.NoError(t, err)

	require.NoError(t, c.ActivateVersion(StageVisual, "v4.1"))
	assert.Equal(t, 0, c.Stats().Size)

	after, err := c.Get(toddlerConfig(), StageVisual)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Error(t, c.ActivateVersion(StageVisual, "v0.1"))
}

func TestCachePrewarm(t *testing.T) {
	c := newTestCache(t)
	elementary := toddlerConfig()
	elementary.AgeGroup = catalog.AgeElementary

	require.NoError(t, c.Prewarm([]Config{toddlerConfig(), elementary}))
	assert.Equal(t, 6, c.Stats().Size)

	b := c.Builder(toddlerConfig())
	_, err := b.Build(StageStory)
	require.NoError(t, err)
	assert.EqualValues(t, 6, c.Stats().Builds)
	assert.EqualValues(t, 1, c.Stats().Hits)

	bad := toddlerConfig()
	bad.Tone = "grumpy"
	assert.Error(t, c.Prewarm([]Config{bad}))
}
