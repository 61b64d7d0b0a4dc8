package pipeline

import (
	"context"
	"log/slog"
	"time"

	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/pkg/logger"
	"logitoon-ai-api/pkg/metrics"
	"logitoon-ai-api/pkg/tracer"
)

// Runner 按顺序执行各阶段，遇到第一个硬错误即停止
type Runner struct {
	prompts *prompt.Cache
	log     *slog.Logger
	stages  []Stage
}

// RunnerOption Runner 可选项
type RunnerOption func(*Runner)

// WithLogger 指定日志器
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCritic 在视觉阶段后追加评审阶段
func WithCritic(enabled bool) RunnerOption {
	return func(r *Runner) {
		if enabled {
			r.stages = append(r.stages, NewCriticStage(r.prompts))
		}
	}
}

// NewRunner 创建流水线
func NewRunner(prompts *prompt.Cache, opts ...RunnerOption) *Runner {
	r := &Runner{
		prompts: prompts,
		log:     logger.Default(),
	}
	r.stages = []Stage{NewLogicStage(prompts), NewStoryStage(prompts), NewVisualStage(prompts)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stages 返回阶段列表的副本
func (r *Runner) Stages() []Stage {
	return append([]Stage(nil), r.stages...)
}

// Run 从头执行一次完整生成
func (r *Runner) Run(ctx context.Context, topic string, cfg prompt.Config, call AICallFunc, progress ProgressFunc) Context {
	in := NewContext(topic, cfg)
	if err := cfg.Validate(); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("invalid").Inc()
		out := in.fail(err.Error())
		out.cause = err
		return out
	}

	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	out := r.run(ctx, in, r.stages, call, progress)
	status := "success"
	if out.Failed() {
		status = "failed"
	}
	metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	return out
}

// RunPartial 在已有上下文上重放部分阶段
func (r *Runner) RunPartial(ctx context.Context, in Context, stages []Stage, call AICallFunc, progress ProgressFunc) Context {
	ctx, span := tracer.Start(ctx, "pipeline.RunPartial")
	defer span.End()

	out := in.clone()
	out.Errors = nil
	out.cause = nil
	return r.run(ctx, out, stages, call, progress)
}

func (r *Runner) run(ctx context.Context, c Context, stages []Stage, call AICallFunc, progress ProgressFunc) Context {
	for _, st := range stages {
		name := st.Name()
		if progress != nil {
			progress(name, ProgressMessage(name, c.Config.Language))
		}

		stageCtx := logger.WithContext(ctx, logger.StageKey, name)
		stageCtx, span := tracer.Start(stageCtx, "pipeline."+name)
		start := time.Now()
		before := len(c.Warnings)

		c = st.Run(stageCtx, c, call)

		status := "success"
		if c.Failed() {
			status = "failed"
		}
		metrics.PipelineStageDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
		if added := len(c.Warnings) - before; added > 0 {
			metrics.PipelineWarningsTotal.WithLabelValues(name).Add(float64(added))
			r.log.WarnContext(stageCtx, "stage finished with warnings", "stage", name, "warnings", c.Warnings[before:])
		}
		span.End()

		if c.Failed() {
			r.log.ErrorContext(stageCtx, "pipeline halted", "stage", name, "errors", c.Errors)
			return c
		}
		r.log.DebugContext(stageCtx, "stage complete", "stage", name, "duration", time.Since(start))
	}
	return c.withState(StateComplete)
}
