package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "logitoon-ai-api/pkg/errors"
)

func TestNewMessage_RenderJobRoundTrip(t *testing.T) {
	job := &RenderJobMessage{JobID: "job-1", ComicID: "comic-1", PanelIDs: []int{2, 3}, RequestID: "req-9"}

	msg, err := NewMessage(job.JobID, TypeRenderPanels, job.ComicID, job)
	require.NoError(t, err)
	assert.Equal(t, "comic-1", msg.ComicID)
	assert.Equal(t, TypeRenderPanels, msg.Type)
	assert.False(t, msg.CreatedAt.IsZero())

	var decoded RenderJobMessage
	require.NoError(t, msg.UnmarshalPayload(&decoded))
	assert.Equal(t, []int{2, 3}, decoded.PanelIDs)
	assert.Equal(t, "req-9", decoded.RequestID)
}

func TestMessage_Metadata(t *testing.T) {
	var msg Message
	assert.Empty(t, msg.GetMetadata("request_id"))

	msg.SetMetadata("request_id", "abc")
	assert.Equal(t, "abc", msg.GetMetadata("request_id"))
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:comic:render", StreamComicRender.DLQStream())
	assert.Equal(t, ConsumerGroup("prod-cg-render-worker"), ConsumerGroupRenderWorker.WithPrefix("prod-"))
	assert.Equal(t, ConsumerGroupRenderWorker, ConsumerGroupRenderWorker.WithPrefix(""))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(10))
}

func TestNewConsumer_Defaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamComicRender, Group: ConsumerGroupRenderWorker})

	assert.Equal(t, 5*time.Second, c.blockTimeout)
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, DefaultBackoffConfig(), c.backoff)
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)
}

func streamEntry(t *testing.T, msg *Message) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return redis.XMessage{ID: "1-0", Values: map[string]any{"data": string(data)}}
}

func TestDecodeRenderJob(t *testing.T) {
	msg, err := NewMessage("job-7", TypeRenderPanels, "comic-1", &RenderJobMessage{PanelIDs: []int{1}})
	require.NoError(t, err)
	msg.SetMetadata("request_id", "req-3")

	env, job, err := decodeRenderJob(streamEntry(t, msg))
	require.NoError(t, err)
	assert.Equal(t, "job-7", env.ID)
	assert.Equal(t, "comic-1", job.ComicID)
	assert.Equal(t, "job-7", job.JobID)
	assert.Equal(t, "req-3", job.RequestID)
	assert.Equal(t, []int{1}, job.PanelIDs)

	_, _, err = decodeRenderJob(redis.XMessage{ID: "2-0", Values: map[string]any{}})
	assert.Error(t, err)

	other, err := NewMessage("x", "generate_chapter", "", map[string]any{})
	require.NoError(t, err)
	_, _, err = decodeRenderJob(streamEntry(t, other))
	assert.ErrorContains(t, err, "unexpected message type")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("connection reset"), true},
		{"render failed", apperrors.ErrRenderFailed, true},
		{"comic gone", fmt.Errorf("render job j1: %w", apperrors.ErrComicNotFound.WithDetail("c1")), false},
		{"invalid panels", apperrors.ErrInvalidParam.WithDetail("no panels match [9]"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func newTestConsumer(handle RenderJobFunc) (*Consumer, *[]time.Duration) {
	c := NewConsumer(nil, ConsumerConfig{
		Group:      ConsumerGroupRenderWorker,
		RetryLimit: 3,
		Backoff:    BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2},
	})
	c.Handle(handle)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func renderEntry(t *testing.T) redis.XMessage {
	t.Helper()
	msg, err := NewMessage("job-1", TypeRenderPanels, "comic-1", &RenderJobMessage{JobID: "job-1", ComicID: "comic-1"})
	require.NoError(t, err)
	return streamEntry(t, msg)
}

func TestConsumerDispatch(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		c, slept := newTestConsumer(func(_ context.Context, job *RenderJobMessage) error {
			calls++
			assert.Equal(t, "comic-1", job.ComicID)
			if calls == 1 {
				return apperrors.ErrRenderFailed
			}
			return nil
		})

		_, res, err := c.dispatch(context.Background(), renderEntry(t))
		require.NoError(t, err)
		assert.Equal(t, outcomeSuccess, res)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []time.Duration{time.Second}, *slept)
	})

	t.Run("comic gone is skipped without retry", func(t *testing.T) {
		calls := 0
		c, slept := newTestConsumer(func(context.Context, *RenderJobMessage) error {
			calls++
			return apperrors.ErrComicNotFound
		})

		_, res, err := c.dispatch(context.Background(), renderEntry(t))
		require.Error(t, err)
		assert.Equal(t, outcomeSkipped, res)
		assert.Equal(t, 1, calls)
		assert.Empty(t, *slept)
	})

	t.Run("exhausted retries dead-letter", func(t *testing.T) {
		calls := 0
		c, slept := newTestConsumer(func(context.Context, *RenderJobMessage) error {
			calls++
			return errors.New("upstream 503")
		})

		msg, res, err := c.dispatch(context.Background(), renderEntry(t))
		require.Error(t, err)
		assert.Equal(t, outcomeDeadLetter, res)
		assert.Equal(t, "job-1", msg.ID)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	})

	t.Run("interrupted backoff stays pending", func(t *testing.T) {
		c, _ := newTestConsumer(func(context.Context, *RenderJobMessage) error {
			return errors.New("upstream 503")
		})
		c.sleep = func(context.Context, time.Duration) error { return context.Canceled }

		_, res, err := c.dispatch(context.Background(), renderEntry(t))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, outcomeInterrupted, res)
	})

	t.Run("malformed entry is skipped", func(t *testing.T) {
		c, _ := newTestConsumer(func(context.Context, *RenderJobMessage) error {
			t.Fatal("handler must not run")
			return nil
		})

		_, res, err := c.dispatch(context.Background(), redis.XMessage{ID: "9-0", Values: map[string]any{"data": "{"}})
		require.Error(t, err)
		assert.Equal(t, outcomeSkipped, res)
	})
}

func TestConsumerStartRequiresHandler(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Group: ConsumerGroupRenderWorker})
	assert.ErrorContains(t, c.Start(context.Background()), "no render job handler")
}
