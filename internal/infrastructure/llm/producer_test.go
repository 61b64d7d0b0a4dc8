package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "logitoon-ai-api/pkg/errors"
)

type fakeChatModel struct {
	errs     []error
	content  string
	calls    int
	optCount []int
	msgs     []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := m.calls
	m.calls++
	m.optCount = append(m.optCount, len(opts))
	m.msgs = input
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
	asked string
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.asked = name
	return f.model, f.err
}

var testSchema = map[string]any{"type": "object"}

func TestProducerCall(t *testing.T) {
	cm := &fakeChatModel{content: `{"title":"Sky"}`}
	f := &fakeFactory{model: cm}

	out, err := NewProducer(f, "openai").Call(context.Background(), "system", "user", testSchema)

	require.NoError(t, err)
	assert.Equal(t, `{"title":"Sky"}`, out)
	assert.Equal(t, "openai", f.asked)
	assert.Equal(t, 1, cm.calls)
	assert.Equal(t, []int{1}, cm.optCount)
	require.Len(t, cm.msgs, 2)
	assert.Equal(t, schema.System, cm.msgs[0].Role)
	assert.Equal(t, "user", cm.msgs[1].Content)
}

func TestProducerFallsBackWithoutResponseFormat(t *testing.T) {
	cm := &fakeChatModel{
		errs:    []error{errors.New("400: response_format json_schema is not supported")},
		content: `{"ok":true}`,
	}

	out, err := NewProducer(&fakeFactory{model: cm}, "").Call(context.Background(), "s", "u", testSchema)

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, []int{1, 0}, cm.optCount)
}

func TestProducerMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{name: "rate limited", err: errors.New("status 429: too many requests"), code: apperrors.CodeRateLimited},
		{name: "other", err: errors.New("connection reset by peer"), code: apperrors.CodeLLMCallFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := &fakeChatModel{errs: []error{tt.err}}
			_, err := NewProducer(&fakeFactory{model: cm}, "").Call(context.Background(), "s", "u", nil)

			appErr := apperrors.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestProducerEmptyResponse(t *testing.T) {
	cm := &fakeChatModel{content: "  "}

	_, err := NewProducer(&fakeFactory{model: cm}, "").Call(context.Background(), "s", "u", nil)

	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeMalformedOutput, appErr.Code)
}
