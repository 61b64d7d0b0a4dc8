// Package render 基于 Gemini/Imagen 的面板图像渲染
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"logitoon-ai-api/internal/config"
	"logitoon-ai-api/internal/workflow/node"
	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
	"logitoon-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("render")

// Image 渲染得到的图像
type Image struct {
	Data     []byte
	MIMEType string
}

// backend 单次图像生成调用
type backend interface {
	Generate(ctx context.Context, model, prompt string) (*Image, error)
}

// Renderer 带重试的图像渲染器
type Renderer struct {
	backend     backend
	model       string
	maxRetries  int
	baseBackoff time.Duration
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRenderer 基于配置创建 genai 渲染器
func NewRenderer(ctx context.Context, cfg *config.RenderConfig) (*Renderer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return newRenderer(&genaiBackend{client: client, aspectRatio: cfg.AspectRatio}, cfg), nil
}

func newRenderer(b backend, cfg *config.RenderConfig) *Renderer {
	r := &Renderer{
		backend:     b,
		model:       cfg.Model,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.RetryBackoff,
		timeout:     cfg.Timeout,
		sleep:       sleepContext,
	}
	if r.maxRetries <= 0 {
		r.maxRetries = 3
	}
	if r.baseBackoff <= 0 {
		r.baseBackoff = 2 * time.Second
	}
	return r
}

// Model 当前渲染模型
func (r *Renderer) Model() string { return r.model }

// Render 渲染单张图像；429 与 5xx 按 base·2^attempt 退避重试，其他错误立即返回
func (r *Renderer) Render(ctx context.Context, prompt string) (*Image, error) {
	ctx, span := tracer.Start(ctx, "render.Render")
	defer span.End()
	span.SetAttributes(attribute.String("render.model", r.model))

	start := time.Now()
	defer func() {
		metrics.ImageRenderDuration.WithLabelValues(r.model).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		img, err := r.generateOnce(ctx, prompt)
		if err == nil {
			metrics.ImageRenderTotal.WithLabelValues(r.model, "success").Inc()
			return img, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == r.maxRetries {
			break
		}

		delay := r.Backoff(attempt)
		logger.Warn(ctx, "image render throttled, retrying",
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	metrics.ImageRenderTotal.WithLabelValues(r.model, "error").Inc()
	if node.IsRateLimitError(lastErr) {
		return nil, apperrors.ErrRateLimited.WithError(lastErr)
	}
	return nil, apperrors.Wrap(lastErr, apperrors.CodeRenderFailed, "image render failed")
}

// Backoff 第 attempt 次失败后的等待时间
func (r *Renderer) Backoff(attempt int) time.Duration {
	return r.baseBackoff * time.Duration(1<<attempt)
}

func (r *Renderer) generateOnce(ctx context.Context, prompt string) (*Image, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	img, err := r.backend.Generate(ctx, r.model, prompt)
	if err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 {
		return nil, errors.New("no image returned by model")
	}
	if img.MIMEType == "" {
		img.MIMEType = "image/png"
	}
	return img, nil
}

// IsRetryable 判断是否为限流或服务端错误
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	if node.IsRateLimitError(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "500") || strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "INTERNAL")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
