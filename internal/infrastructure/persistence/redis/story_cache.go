package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/node"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

const storyKeyPrefix = "comic:topic:"

// DefaultStoryTTL 未配置时的漫画缓存时长
const DefaultStoryTTL = 24 * time.Hour

// StoryKey comic:topic:{规范化主题}:{age}:{tone}:{character}:{style}:{language}:{topic category}
func StoryKey(topic string, cfg prompt.Config) string {
	return storyKeyPrefix + strings.Join([]string{
		node.NormalizeTopic(topic),
		string(cfg.AgeGroup),
		string(cfg.Tone),
		string(cfg.Character),
		string(cfg.Style),
		cfg.Language,
		string(cfg.Topic()),
	}, ":")
}

// StoryCache 已生成漫画的读穿缓存，同一键的并发生成只执行一次
type StoryCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStoryCache 创建漫画缓存
func NewStoryCache(client *Client, ttl time.Duration) *StoryCache {
	if ttl <= 0 {
		ttl = DefaultStoryTTL
	}
	return &StoryCache{client: client, ttl: ttl}
}

// Get 读取缓存，未命中返回 (nil, false, nil)
func (c *StoryCache) Get(ctx context.Context, key string) (*model.Comic, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if IsNil(err) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			metrics.StoryCacheLookups.WithLabelValues("miss").Inc()
			return nil, false, nil
		}
		span.RecordError(err)
		metrics.StoryCacheLookups.WithLabelValues("error").Inc()
		return nil, false, err
	}

	var comic model.Comic
	if err := json.Unmarshal(val, &comic); err != nil {
		span.RecordError(err)
		metrics.StoryCacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("failed to decode cached comic: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	metrics.StoryCacheLookups.WithLabelValues("hit").Inc()
	return &comic, true, nil
}

// Set 写入缓存
func (c *StoryCache) Set(ctx context.Context, key string, comic *model.Comic) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_ms", c.ttl.Milliseconds()),
		))
	defer span.End()

	b, err := json.Marshal(comic)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal comic: %w", err)
	}
	if err := c.client.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// GetOrGenerate 命中直接返回；未命中时合并并发请求调用 generate 并回写缓存。
// 只有实际执行 generate 的调用方得到 cached=false，每个调用方拿到独立副本。
func (c *StoryCache) GetOrGenerate(ctx context.Context, key string, generate func(context.Context) (*model.Comic, error)) (*model.Comic, bool, error) {
	lookup := func(ctx context.Context) (*model.Comic, bool) {
		comic, ok, err := c.Get(ctx, key)
		return comic, err == nil && ok
	}
	store := func(ctx context.Context, comic *model.Comic) {
		if err := c.Set(ctx, key, comic); err != nil {
			trace.SpanFromContext(ctx).RecordError(err)
		}
	}
	return c.coalesce(ctx, key, lookup, generate, store)
}

func (c *StoryCache) coalesce(
	ctx context.Context,
	key string,
	lookup func(context.Context) (*model.Comic, bool),
	generate func(context.Context) (*model.Comic, error),
	store func(context.Context, *model.Comic),
) (*model.Comic, bool, error) {
	if comic, ok := lookup(ctx); ok {
		return comic, true, nil
	}

	generated := false
	result, err, shared := c.group.Do(key, func() (any, error) {
		if comic, ok := lookup(ctx); ok {
			return comic, nil
		}
		comic, err := generate(ctx)
		if err != nil {
			return nil, err
		}
		generated = true
		store(ctx, comic)
		return comic, nil
	})
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		return nil, false, err
	}
	comic := result.(*model.Comic)
	if shared {
		comic = comic.Clone()
	}
	return comic, !generated, nil
}

// InvalidateAll 删除全部漫画缓存，提示词版本切换后调用
func (c *StoryCache) InvalidateAll(ctx context.Context) (int, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.InvalidateAll")
	defer span.End()

	iter := c.client.rdb.Scan(ctx, 0, storyKeyPrefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	span.SetAttributes(attribute.Int("cache.invalidated_count", len(keys)))
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return len(keys), nil
}
