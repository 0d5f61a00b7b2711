package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giridharan-1129/LLM-Evaluation-app/provider"
)

// stubProvider is a scripted provider for dispatch tests.
type stubProvider struct {
	name    string
	delay   time.Duration
	result  *provider.CallResult
	err     error
	calls   atomic.Int32
	started chan struct{}
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Call(ctx context.Context, req provider.CallRequest) (*provider.CallResult, error) {
	s.calls.Add(1)
	if s.started != nil {
		close(s.started)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	result := *s.result
	result.Model = req.Model
	return &result, s.err
}

func (s *stubProvider) CountTokens(text string) int { return 0 }

// TestEvaluateRow_DualModeReturnsBothResults verifies the join collects
// both slots.
func TestEvaluateRow_DualModeReturnsBothResults(t *testing.T) {
	a := &stubProvider{name: "openai", result: &provider.CallResult{ResponseText: "answer A"}}
	b := &stubProvider{name: "deepseek", result: &provider.CallResult{ResponseText: "answer B"}}
	d := New(a, ModelConfig{Model: "gpt-4"}, b, ModelConfig{Model: "deepseek-chat"})
	require.True(t, d.DualMode())

	resultA, resultB := d.EvaluateRow(context.Background(), Request{UserPrompt: "q"})
	require.NotNil(t, resultA)
	require.NotNil(t, resultB)
	assert.Equal(t, "answer A", resultA.ResponseText)
	assert.Equal(t, "answer B", resultB.ResponseText)
	assert.Equal(t, "gpt-4", resultA.Model)
	assert.Equal(t, "deepseek-chat", resultB.Model)
}

// TestEvaluateRow_CallsRunConcurrently verifies genuine fan-out: two calls
// that each take ~50ms must overlap rather than run back to back.
func TestEvaluateRow_CallsRunConcurrently(t *testing.T) {
	const delay = 50 * time.Millisecond
	a := &stubProvider{name: "openai", delay: delay, result: &provider.CallResult{ResponseText: "A"}}
	b := &stubProvider{name: "deepseek", delay: delay, result: &provider.CallResult{ResponseText: "B"}}
	d := New(a, ModelConfig{Model: "gpt-4"}, b, ModelConfig{Model: "deepseek-chat"})

	start := time.Now()
	d.EvaluateRow(context.Background(), Request{UserPrompt: "q"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*delay, "calls ran sequentially")
}

// TestEvaluateRow_SlowSlotDoesNotDropFastSlot verifies both results are
// collected even when one slot is much slower.
func TestEvaluateRow_SlowSlotDoesNotDropFastSlot(t *testing.T) {
	a := &stubProvider{name: "openai", delay: 80 * time.Millisecond, result: &provider.CallResult{ResponseText: "slow"}}
	b := &stubProvider{name: "deepseek", result: &provider.CallResult{ResponseText: "fast"}}
	d := New(a, ModelConfig{Model: "gpt-4"}, b, ModelConfig{Model: "deepseek-chat"})

	resultA, resultB := d.EvaluateRow(context.Background(), Request{UserPrompt: "q"})
	assert.Equal(t, "slow", resultA.ResponseText)
	assert.Equal(t, "fast", resultB.ResponseText)
}

// TestEvaluateRow_SingleModelMode verifies the pass-through when no second
// model is configured.
func TestEvaluateRow_SingleModelMode(t *testing.T) {
	a := &stubProvider{name: "openai", result: &provider.CallResult{ResponseText: "only"}}
	d := New(a, ModelConfig{Model: "gpt-4"}, nil, ModelConfig{})
	require.False(t, d.DualMode())

	resultA, resultB := d.EvaluateRow(context.Background(), Request{UserPrompt: "q"})
	require.NotNil(t, resultA)
	assert.Nil(t, resultB)
	assert.Equal(t, "only", resultA.ResponseText)
	assert.Equal(t, int32(1), a.calls.Load())
}

// TestEvaluateRow_FailedSlotStillReturnsSentinel verifies that a provider
// error does not suppress the sentinel result for that slot.
func TestEvaluateRow_FailedSlotStillReturnsSentinel(t *testing.T) {
	sentinel := &provider.CallResult{
		ResponseText: "[Error: boom]",
		ErrorKind:    provider.ErrKindUnknown,
	}
	a := &stubProvider{
		name:   "openai",
		result: sentinel,
		err:    &provider.Error{Kind: provider.ErrKindUnknown, Provider: "openai"},
	}
	b := &stubProvider{name: "deepseek", result: &provider.CallResult{ResponseText: "fine"}}
	d := New(a, ModelConfig{Model: "gpt-4"}, b, ModelConfig{Model: "deepseek-chat"})

	resultA, resultB := d.EvaluateRow(context.Background(), Request{UserPrompt: "q"})
	require.NotNil(t, resultA)
	assert.True(t, resultA.Failed())
	assert.Equal(t, "fine", resultB.ResponseText)
}
