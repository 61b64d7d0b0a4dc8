package prompt

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"logitoon-ai-api/pkg/metrics"
)

const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = time.Hour
)

type cacheEntry struct {
	value     string
	createdAt time.Time
}

// CacheStats 缓存统计
type CacheStats struct {
	Size    int   `json:"size"`
	MaxSize int   `json:"max_size"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Builds  int64 `json:"builds"`
}

// Cache 以 (stage, 配置元组) 为键的 LRU+TTL 提示词缓存。
// 过期条目在读取时视为不存在，不做后台清扫；同键并发写入以最后写入为准。
type Cache struct {
	registry *Registry
	entries  *lru.Cache[string, cacheEntry]
	maxSize  int
	ttl      time.Duration
	now      func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

// CacheOption 缓存选项
type CacheOption func(*Cache)

// WithMaxSize 设置容量
func WithMaxSize(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL 设置条目存活时间
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache 创建缓存
func NewCache(registry *Registry, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		registry: registry,
		maxSize:  DefaultCacheSize,
		ttl:      DefaultCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.New[string, cacheEntry](c.maxSize)
	if err != nil {
		return nil, fmt.Errorf("create prompt lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Registry 返回底层版本存储
func (c *Cache) Registry() *Registry {
	return c.registry
}

// Get 返回缓存的阶段提示词，未命中或过期时构建并写入
func (c *Cache) Get(cfg Config, s Stage) (string, error) {
	key := cfg.CacheKey(s)
	if e, ok := c.entries.Get(key); ok && c.now().Sub(e.createdAt) < c.ttl {
		c.hits.Add(1)
		metrics.PromptCacheLookups.WithLabelValues("hit").Inc()
		return e.value, nil
	}
	c.misses.Add(1)
	metrics.PromptCacheLookups.WithLabelValues("miss").Inc()

	value, err := NewBuilder(c.registry, cfg).Build(s)
	if err != nil {
		return "", err
	}
	c.builds.Add(1)
	metrics.PromptCacheBuilds.Inc()

	c.entries.Add(key, cacheEntry{value: value, createdAt: c.now()})
	return value, nil
}

// Invalidate 清空全部条目
func (c *Cache) Invalidate() {
	c.entries.Purge()
}

// ActivateVersion 切换激活版本并清空缓存
func (c *Cache) ActivateVersion(s Stage, version string) error {
	if err := c.registry.Activate(s, version); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Prewarm 为每个配置预构建 logic/story/visual 三个阶段
func (c *Cache) Prewarm(configs []Config) error {
	for _, cfg := range configs {
		for _, s := range []Stage{StageLogic, StageStory, StageVisual} {
			if _, err := c.Get(cfg, s); err != nil {
				return fmt.Errorf("prewarm %s: %w", cfg.CacheKey(s), err)
			}
		}
	}
	return nil
}

// Stats 返回统计快照
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Builds:  c.builds.Load(),
	}
}

// Builder 返回绑定配置、经由缓存构建的构建器
func (c *Cache) Builder(cfg Config) *CachedBuilder {
	return &CachedBuilder{cache: c, cfg: cfg}
}

// CachedBuilder 与 Builder 接口一致，但构建结果走缓存
type CachedBuilder struct {
	cache *Cache
	cfg   Config
}

func (b *CachedBuilder) Config() Config {
	return b.cfg
}

func (b *CachedBuilder) WithConfig(p ConfigPatch) *CachedBuilder {
	return &CachedBuilder{cache: b.cache, cfg: b.cfg.Merge(p)}
}

func (b *CachedBuilder) Build(s Stage) (string, error) {
	return b.cache.Get(b.cfg, s)
}
