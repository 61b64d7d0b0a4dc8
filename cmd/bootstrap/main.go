package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"logitoon-ai-api/internal/config"
	"logitoon-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	pg, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := pg.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate comics table: %v", err)
	}
	fmt.Println("Comics table migrated.")

	// 4. 预热提示词缓存，顺带检查全部模板可用
	prompts, err := wire.ProvidePromptCache(cfg)
	if err != nil {
		log.Fatalf("failed to load prompt templates: %v", err)
	}
	configs := wire.PrewarmConfigs(cfg)
	if err := prompts.Prewarm(configs); err != nil {
		log.Fatalf("failed to prewarm prompt cache: %v", err)
	}
	stats := prompts.Stats()
	fmt.Printf("Prompt cache prewarmed: %d configs, %d entries.\n", len(configs), stats.Size)

	fmt.Println("Bootstrap completed successfully.")
}
