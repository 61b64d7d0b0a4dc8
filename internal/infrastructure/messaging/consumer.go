package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
	"logitoon-ai-api/pkg/metrics"
)

// RenderJobFunc 处理一条渲染任务
type RenderJobFunc func(ctx context.Context, job *RenderJobMessage) error

// outcome 一条消息的最终处理结果，同时作为指标标签
type outcome string

const (
	outcomeSuccess     outcome = "success"
	outcomeSkipped     outcome = "skipped"
	outcomeDeadLetter  outcome = "dead_letter"
	outcomeInterrupted outcome = "interrupted"
)

// Retryable 漫画不存在或参数无效的任务重试不会成功，其余错误可重试
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if !apperrors.IsAppError(err) {
		return true
	}
	switch apperrors.AsAppError(err).Code {
	case apperrors.CodeComicNotFound, apperrors.CodeInvalidParam:
		return false
	}
	return true
}

// Consumer 渲染任务消费者：进程内按退避重试，耗尽后转入死信流；
// 崩溃遗留的 pending 消息由 XAUTOCLAIM 定期认领
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig
	sleep         func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	handle  RenderJobFunc
	running bool
	stopCh  chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建渲染任务消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.Stream == "" {
		cfg.Stream = StreamComicRender
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		reclaimIdle:   max(5*time.Minute, cfg.Backoff.Max*2),
		retryLimit:    cfg.RetryLimit,
		backoff:       cfg.Backoff,
		sleep:         sleepContext,
		stopCh:        make(chan struct{}),
	}
}

// Handle 设置渲染任务处理函数
func (c *Consumer) Handle(fn RenderJobFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = fn
}

// Start 创建消费者组并启动消费循环
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	if c.handle == nil {
		c.mu.Unlock()
		return fmt.Errorf("consumer has no render job handler")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Consumer) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Consumer) run(ctx context.Context) {
	logger.Info(ctx, "render consumer started",
		"stream", string(c.stream),
		"group", string(c.group),
		"consumer", c.consumerName,
	)

	lastClaim := time.Now().Add(-c.claimInterval)
	for !c.stopped(ctx) {
		if time.Since(lastClaim) >= c.claimInterval {
			c.reclaim(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    1,
			Block:    c.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || c.stopped(ctx) {
				continue
			}
			logger.Error(ctx, "failed to read render stream", err)
			_ = c.sleep(ctx, time.Second)
			continue
		}

		for _, s := range streams {
			for _, xmsg := range s.Messages {
				c.process(ctx, xmsg)
			}
		}
	}
	logger.Info(ctx, "render consumer stopped")
}

// reclaim 认领其他消费者空闲过久的消息，通常来自崩溃的 worker
func (c *Consumer) reclaim(ctx context.Context) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.consumerName,
		MinIdle:  c.reclaimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error(ctx, "failed to reclaim stale render jobs", err)
		}
		return
	}
	for _, xmsg := range msgs {
		logger.Warn(ctx, "reclaimed stale render job", "stream_id", xmsg.ID)
		c.process(ctx, xmsg)
	}
}

func (c *Consumer) process(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.RenderJob",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, res, err := c.dispatch(ctx, xmsg)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("render.outcome", string(res)))
	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), string(res)).Inc()

	switch res {
	case outcomeInterrupted:
		// 保持 pending，由 reclaim 重新投递
		return
	case outcomeDeadLetter:
		if dlqErr := c.moveToDLQ(ctx, msg, err); dlqErr != nil {
			logger.Error(ctx, "failed to dead-letter render job", dlqErr, "stream_id", xmsg.ID)
			return
		}
	}
	if ackErr := c.client.XAck(ctx, string(c.stream), string(c.group), xmsg.ID).Err(); ackErr != nil {
		logger.Error(ctx, "failed to ack render job", ackErr, "stream_id", xmsg.ID)
	}
}

// decodeRenderJob 解出信封与渲染任务；任务缺少漫画 ID 时沿用信封上的
func decodeRenderJob(xmsg redis.XMessage) (*Message, *RenderJobMessage, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("message %s has no data field", xmsg.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, nil, fmt.Errorf("decode message %s: %w", xmsg.ID, err)
	}
	if msg.Type != TypeRenderPanels {
		return &msg, nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var job RenderJobMessage
	if err := msg.UnmarshalPayload(&job); err != nil {
		return &msg, nil, fmt.Errorf("decode render job %s: %w", msg.ID, err)
	}
	if job.ComicID == "" {
		job.ComicID = msg.ComicID
	}
	if job.JobID == "" {
		job.JobID = msg.ID
	}
	if job.RequestID == "" {
		job.RequestID = msg.GetMetadata("request_id")
	}
	return &msg, &job, nil
}

// dispatch 解码并执行任务，不可重试的错误直接跳过，可重试错误在退避后重试到上限
func (c *Consumer) dispatch(ctx context.Context, xmsg redis.XMessage) (*Message, outcome, error) {
	msg, job, err := decodeRenderJob(xmsg)
	if err != nil {
		logger.Error(ctx, "malformed render job dropped", err, "stream_id", xmsg.ID)
		return msg, outcomeSkipped, err
	}

	ctx = logger.WithContext(ctx, logger.ComicIDKey, job.ComicID)
	if job.RequestID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, job.RequestID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}

	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		err = handle(ctx, job)
		switch {
		case err == nil:
			return msg, outcomeSuccess, nil
		case !Retryable(err):
			logger.Warn(ctx, "render job skipped", "job_id", job.JobID, "error", err.Error())
			return msg, outcomeSkipped, err
		case attempt+1 >= c.retryLimit:
			logger.Error(ctx, "render job exhausted retries", err, "job_id", job.JobID, "attempts", attempt+1)
			return msg, outcomeDeadLetter, err
		}

		wait := c.backoff.CalculateBackoff(attempt)
		logger.Warn(ctx, "render job failed, retrying",
			"job_id", job.JobID,
			"attempt", attempt+1,
			"backoff", wait.String(),
			"error", err.Error(),
		)
		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return msg, outcomeInterrupted, sleepErr
		}
	}
}

// moveToDLQ 写入死信流，保留原始消息与最后一次错误
func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, cause error) error {
	entry := map[string]any{
		"original_stream": string(c.stream),
		"data":            msg,
		"failed_at":       time.Now().Unix(),
	}
	if cause != nil {
		entry["error"] = cause.Error()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream.DLQStream(),
		Values: map[string]any{"data": string(data)},
	}).Err()
}

// MonitorDLQ 每分钟上报死信流长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlq := c.stream.DLQStream()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			n, err := c.client.XLen(ctx, dlq).Result()
			if err != nil {
				continue
			}
			metrics.RedisStreamDLQLength.WithLabelValues(dlq).Set(float64(n))
			if n > alertThreshold {
				logger.Warn(ctx, "render DLQ above threshold", "stream", dlq, "count", n)
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
