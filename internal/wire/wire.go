// Package wire 组装各进程的依赖
package wire

import (
	"context"
	"fmt"
	"os"

	"logitoon-ai-api/internal/application/comic"
	"logitoon-ai-api/internal/config"
	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/infrastructure/llm"
	"logitoon-ai-api/internal/infrastructure/messaging"
	"logitoon-ai-api/internal/infrastructure/persistence/postgres"
	"logitoon-ai-api/internal/infrastructure/persistence/redis"
	"logitoon-ai-api/internal/infrastructure/render"
	"logitoon-ai-api/internal/infrastructure/storage"
	"logitoon-ai-api/internal/interfaces/http/handler"
	"logitoon-ai-api/internal/interfaces/http/router"
	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/pipeline"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	PgClient    *postgres.Client
	ComicRepo   *postgres.ComicRepository
	RedisClient *redis.Client
	StoryCache  *redis.StoryCache
	RateLimiter *redis.RateLimiter
	Producer    *messaging.Producer
}

// cleanups 逆序执行的清理函数
type cleanups []func()

func (c *cleanups) add(f func()) { *c = append(*c, f) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// InitializeDataLayer 初始化 PostgreSQL、Redis 与消息生产者
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	var cl cleanups

	pg, cleanupPg, err := ProvidePostgresClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	cl.add(cleanupPg)

	rc, cleanupRedis, err := ProvideRedisClient(cfg)
	if err != nil {
		cl.run()
		return nil, nil, err
	}
	cl.add(cleanupRedis)

	return &DataLayer{
		PgClient:    pg,
		ComicRepo:   postgres.NewComicRepository(pg),
		RedisClient: rc,
		StoryCache:  redis.NewStoryCache(rc, cfg.Cache.StoryTTL),
		RateLimiter: redis.NewRateLimiter(rc),
		Producer:    ProvideMessagingProducer(rc, cfg),
	}, cl.run, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL（用于 bootstrap）
func InitializePostgresOnly(_ context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	return ProvidePostgresClient(cfg)
}

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	prompts, err := ProvidePromptCache(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	store := ProvideObjectStoreOptional(ctx, cfg)
	var batch *comic.BatchRenderer
	if cfg.Render.Inline {
		batch = ProvideBatchRendererOptional(ctx, cfg, store, data.ComicRepo)
	}

	deps := comic.Deps{
		Runner:   ProvideRunner(cfg, prompts),
		Call:     ProvideLLMCall(cfg),
		Repo:     data.ComicRepo,
		Queue:    data.Producer,
		Renderer: batch,
	}
	if cfg.Features.StoryCache.Enabled {
		deps.Cache = data.StoryCache
	}
	if store != nil {
		deps.Store = store
	}
	svc := comic.NewService(deps, comic.Options{
		DefaultLanguage: cfg.Pipeline.DefaultLanguage,
		InlineRender:    cfg.Render.Inline && batch != nil,
	})

	optional := map[string]repository.HealthChecker{}
	if store != nil {
		optional["s3"] = store
	}
	handlers := router.Handlers{
		Health: handler.NewHealthHandler(cfg.App.Version, map[string]repository.HealthChecker{
			"postgres": data.PgClient,
			"redis":    data.RedisClient,
		}, optional),
		Comic:  handler.NewComicHandler(svc),
		Prompt: handler.NewPromptHandler(comic.NewPromptService(prompts, data.StoryCache)),
	}
	return router.New(cfg, handlers, data.RateLimiter), cleanup, nil
}

// InitializeRenderWorker 初始化渲染任务消费者，已注册渲染处理器
func InitializeRenderWorker(ctx context.Context, cfg *config.Config) (*messaging.Consumer, func(), error) {
	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store := ProvideObjectStoreOptional(ctx, cfg)
	if store == nil {
		cleanup()
		return nil, nil, fmt.Errorf("render worker requires object storage")
	}
	batch := ProvideBatchRendererOptional(ctx, cfg, store, data.ComicRepo)
	if batch == nil {
		cleanup()
		return nil, nil, fmt.Errorf("render worker requires render.api_key")
	}

	consumer := ProvideRenderConsumer(data.RedisClient, cfg)
	consumer.Handle(comic.RenderJobHandler(batch))
	return consumer, cleanup, nil
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.App.Env == "development")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideRenderConsumer 提供渲染流消费者，消费者名取主机名与进程号
func ProvideRenderConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	host, _ := os.Hostname()
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamComicRender,
		Group:         messaging.ConsumerGroupRenderWorker.WithPrefix(rs.ConsumerGroupPrefix),
		ConsumerName:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
}

// ProvidePromptCache 加载提示词版本并创建缓存
func ProvidePromptCache(cfg *config.Config) (*prompt.Cache, error) {
	registry, err := prompt.NewRegistry(prompt.ActiveVersions{
		Logic:  cfg.Prompts.LogicVersion,
		Story:  cfg.Prompts.StoryVersion,
		Visual: cfg.Prompts.VisualVersion,
		Critic: cfg.Prompts.CriticVersion,
	})
	if err != nil {
		return nil, err
	}
	return prompt.NewCache(registry,
		prompt.WithMaxSize(cfg.Prompts.CacheSize),
		prompt.WithTTL(cfg.Prompts.CacheTTL),
	)
}

// PrewarmConfigs 覆盖全部年龄段与语气组合的预热配置
func PrewarmConfigs(cfg *config.Config) []prompt.Config {
	var out []prompt.Config
	for _, age := range catalog.AgeGroups() {
		for _, tone := range catalog.Tones() {
			out = append(out, prompt.Config{
				AgeGroup:  age,
				Tone:      tone,
				Character: catalog.CharacterTypes()[0],
				Style:     catalog.StyleKeys()[0],
				Language:  cfg.Pipeline.DefaultLanguage,
			})
		}
	}
	return out
}

// ProvideRunner 创建流水线
func ProvideRunner(cfg *config.Config, prompts *prompt.Cache) *pipeline.Runner {
	return pipeline.NewRunner(prompts,
		pipeline.WithLogger(logger.Default()),
		pipeline.WithCritic(cfg.Pipeline.CriticEnabled),
	)
}

// ProvideLLMCall 基于 Eino 工厂的模型调用函数
func ProvideLLMCall(cfg *config.Config) pipeline.AICallFunc {
	return llm.NewProducer(llm.NewEinoFactory(&cfg.LLM), cfg.LLM.DefaultProvider).Call
}

// ProvideObjectStoreOptional 对象存储不可用时返回 nil，面板只保留提示词
func ProvideObjectStoreOptional(ctx context.Context, cfg *config.Config) *storage.S3Store {
	store, err := storage.NewS3Store(&cfg.Storage.S3)
	if err != nil {
		logger.Warn(ctx, "object storage not available, panel images disabled", "error", err.Error())
		return nil
	}
	return store
}

// ProvideBatchRendererOptional 缺少渲染密钥或存储时返回 nil
func ProvideBatchRendererOptional(ctx context.Context, cfg *config.Config, store *storage.S3Store, repo repository.ComicRepository) *comic.BatchRenderer {
	if store == nil {
		return nil
	}
	if cfg.Render.APIKey == "" {
		logger.Warn(ctx, "render.api_key not set, image rendering disabled")
		return nil
	}
	renderer, err := render.NewRenderer(ctx, &cfg.Render)
	if err != nil {
		logger.Warn(ctx, "image renderer not available", "error", err.Error())
		return nil
	}
	return comic.NewBatchRenderer(renderer, store, repo, cfg.Render.BatchSize, cfg.Render.BatchDelay)
}
