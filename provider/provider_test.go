package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_KnownAndUnknownProviders verifies construction-time selection.
func TestNew_KnownAndUnknownProviders(t *testing.T) {
	for _, name := range []string{NameOpenAI, NameDeepSeek, NameAnthropic} {
		p, err := New(name, WithAPIKey("test-key"))
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := New("mystery")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

// TestCountTokens_DefaultRatio verifies the 0.75 tokens-per-word estimate.
func TestCountTokens_DefaultRatio(t *testing.T) {
	p, err := New(NameOpenAI, WithAPIKey("test-key"))
	require.NoError(t, err)

	// 8 words * 0.75 = 6 tokens.
	assert.Equal(t, 6, p.CountTokens("one two three four five six seven eight"))
	assert.Zero(t, p.CountTokens(""))
}

// TestCountTokens_CustomRatio verifies the configurable estimation ratio.
func TestCountTokens_CustomRatio(t *testing.T) {
	p, err := New(NameOpenAI, WithAPIKey("test-key"), WithTokensPerWord(2))
	require.NoError(t, err)
	assert.Equal(t, 8, p.CountTokens("one two three four"))
}

// TestCall_MissingCredential verifies the immediate auth_missing sentinel:
// no retries, a usable result, and a typed error.
func TestCall_MissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p, err := New(NameOpenAI)
	require.NoError(t, err)

	result, err := p.Call(context.Background(), CallRequest{
		SystemPrompt: "You are a helpful assistant",
		UserPrompt:   "hello",
		Model:        "gpt-3.5-turbo",
	})
	require.Error(t, err)

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, ErrKindAuthMissing, provErr.Kind)

	require.NotNil(t, result)
	assert.True(t, result.Failed())
	assert.Equal(t, ErrKindAuthMissing, result.ErrorKind)
	assert.Equal(t, "[Error: No API Key]", result.ResponseText)
	assert.Zero(t, result.TotalTokens)
}

// TestCoreExecute_ExhaustedRetriesYieldsSentinel verifies that a provider
// whose attempts keep failing returns a scoreable sentinel result instead
// of propagating a bare error.
func TestCoreExecute_ExhaustedRetriesYieldsSentinel(t *testing.T) {
	sleeper := &fakeSleep{}
	c := core{
		name:   NameOpenAI,
		apiKey: "test-key",
		rates:  openaiRates,
		retry: retryConfig{
			maxRetries:     3,
			initialBackoff: time.Second,
			sleep:          sleeper.sleep,
		},
		callTimeout:   time.Minute,
		tokensPerWord: defaultTokensPerWord,
	}

	calls := 0
	result, err := c.execute(context.Background(), CallRequest{Model: "gpt-4"}, func(ctx context.Context) (*rawResult, error) {
		calls++
		return nil, errors.New("status 503 from upstream")
	})
	require.Error(t, err)

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, ErrKindBadResponse, provErr.Kind)

	require.NotNil(t, result)
	assert.True(t, result.Failed())
	assert.Contains(t, result.ResponseText, "[Error:")
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeper.delays, 2)
}

// TestCoreExecute_SuccessComputesCost verifies token and cost accounting on
// the happy path.
func TestCoreExecute_SuccessComputesCost(t *testing.T) {
	c := core{
		name:   NameOpenAI,
		apiKey: "test-key",
		rates:  openaiRates,
		retry: retryConfig{
			maxRetries:     1,
			initialBackoff: time.Second,
			sleep:          (&fakeSleep{}).sleep,
		},
		callTimeout:   time.Minute,
		tokensPerWord: defaultTokensPerWord,
	}

	result, err := c.execute(context.Background(), CallRequest{Model: "gpt-4"}, func(ctx context.Context) (*rawResult, error) {
		return &rawResult{text: "Paris", inputTokens: 1000, outputTokens: 500}, nil
	})
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, "Paris", result.ResponseText)
	assert.Equal(t, 1500, result.TotalTokens)
	// gpt-4: 1000/1000*0.03 + 500/1000*0.06 = 0.06.
	assert.InDelta(t, 0.06, result.CostUSD, 1e-9)
}

// TestRateTable_FallbackForUnknownModel verifies non-fatal pricing fallback.
func TestRateTable_FallbackForUnknownModel(t *testing.T) {
	known := openaiRates.costUSD(NameOpenAI, "gpt-3.5-turbo", 1000, 1000)
	unknown := openaiRates.costUSD(NameOpenAI, "gpt-9000", 1000, 1000)
	assert.InDelta(t, known, unknown, 1e-12)
	assert.InDelta(t, 0.0005+0.0015, known, 1e-12)
}

// TestSentinelText verifies the placeholder formats for failed calls.
func TestSentinelText(t *testing.T) {
	assert.Equal(t, "[Timeout: openai took too long]",
		sentinelText("openai", ErrKindTimeout, context.DeadlineExceeded))
	assert.Contains(t,
		sentinelText("openai", ErrKindUnknown, errors.New("boom")), "[Error: boom]")
}

// TestSentinelText_TruncatesOnRuneBoundary verifies long error messages
// are cut without splitting a multi-byte rune, so the sentinel stays
// valid UTF-8 when JSON-encoded.
func TestSentinelText_TruncatesOnRuneBoundary(t *testing.T) {
	// 79 ASCII bytes followed by a 3-byte rune straddling the 80-byte cap.
	msg := strings.Repeat("x", 79) + "日本語"
	text := sentinelText("openai", ErrKindUnknown, errors.New(msg))

	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, "[Error: "+strings.Repeat("x", 79)+"]", text)

	// Messages at or under the cap pass through whole.
	short := strings.Repeat("日", 20)
	assert.Equal(t, "[Error: "+short+"]",
		sentinelText("openai", ErrKindUnknown, errors.New(short)))
}
