// Package provider implements clients for the model backends used by the
// evaluation engine. Each backend is selected once at construction time
// behind the Provider interface; calls carry retry with exponential
// backoff, token accounting and cost estimation.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
	"github.com/giridharan-1129/LLM-Evaluation-app/telemetry"
)

// Provider names accepted by New.
const (
	NameOpenAI    = "openai"
	NameDeepSeek  = "deepseek"
	NameAnthropic = "anthropic"
)

// Defaults applied when the corresponding option is unset.
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	defaultCallTimeout    = 60 * time.Second
	defaultMaxTokens      = 2000

	// defaultTokensPerWord is the rough words-to-tokens ratio used when
	// estimating token counts without an API round trip. It is an
	// approximation, never an exact count.
	defaultTokensPerWord = 0.75
)

// ErrorKind classifies provider call failures.
type ErrorKind string

// Error kinds.
const (
	ErrKindAuthMissing ErrorKind = "auth_missing"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindBadResponse ErrorKind = "bad_response"
	ErrKindUnknown     ErrorKind = "unknown"
)

// Error is the typed failure returned by Call alongside the sentinel
// result. Kind auth_missing is a configuration error and is never retried;
// all other kinds are produced only after retries were exhausted.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s provider error: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CallRequest is one completion request to a model backend.
type CallRequest struct {
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// CallResult is the immutable outcome of one provider call. A result is
// produced even when the call ultimately failed: ErrorKind is then set and
// ResponseText carries a sentinel message, so callers can keep scoring the
// row instead of aborting the batch.
type CallResult struct {
	ResponseText string    `json:"response"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	CostUSD      float64   `json:"cost"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ElapsedMs    int64     `json:"latency_ms"`
}

// Failed reports whether the call exhausted its retries or was rejected.
func (r *CallResult) Failed() bool { return r.ErrorKind != "" }

// Provider is one model backend.
type Provider interface {
	// Name returns the backend identifier ("openai", "deepseek", ...).
	Name() string
	// Call sends one completion request. The returned CallResult is always
	// non-nil; err is the typed *Error when the result is a failure
	// sentinel.
	Call(ctx context.Context, req CallRequest) (*CallResult, error)
	// CountTokens estimates the token count of text without calling the
	// API, using the configured words-to-tokens ratio.
	CountTokens(text string) int
}

// options holds construction-time configuration shared by all backends.
type options struct {
	apiKey         string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	callTimeout    time.Duration
	tokensPerWord  float64
	httpClient     *http.Client
}

// Option configures a provider.
type Option func(*options)

// WithAPIKey sets the credential. When unset, the backend's environment
// variable is consulted.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = strings.TrimSpace(key) }
}

// WithBaseURL overrides the backend endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithMaxRetries sets the retry attempt cap.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay; it doubles per attempt.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.initialBackoff = d
		}
	}
}

// WithCallTimeout bounds the wait for a single attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithTokensPerWord overrides the token estimation ratio.
func WithTokensPerWord(ratio float64) Option {
	return func(o *options) {
		if ratio > 0 {
			o.tokensPerWord = ratio
		}
	}
}

// WithHTTPClient overrides the HTTP client used by the backend SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

func newOptions(opts ...Option) options {
	o := options{
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		callTimeout:    defaultCallTimeout,
		tokensPerWord:  defaultTokensPerWord,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New constructs the provider for the given backend name. Unknown names
// are a configuration error.
func New(name string, opts ...Option) (Provider, error) {
	switch name {
	case NameOpenAI, NameDeepSeek:
		return newOpenAI(name, newOptions(opts...)), nil
	case NameAnthropic:
		return newAnthropic(newOptions(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
}

// rawResult is what a backend attempt yields before accounting.
type rawResult struct {
	text         string
	inputTokens  int
	outputTokens int
}

// core carries the behavior shared by all backends: credential checking,
// retry, sentinel results, cost and token accounting.
type core struct {
	name          string
	apiKey        string
	rates         rateTable
	retry         retryConfig
	callTimeout   time.Duration
	tokensPerWord float64
}

func newCore(name, apiKey string, rates rateTable, o options) core {
	return core{
		name:   name,
		apiKey: apiKey,
		rates:  rates,
		retry: retryConfig{
			maxRetries:     o.maxRetries,
			initialBackoff: o.initialBackoff,
			sleep:          sleepWithContext,
		},
		callTimeout:   o.callTimeout,
		tokensPerWord: o.tokensPerWord,
	}
}

// Name returns the backend identifier.
func (c *core) Name() string { return c.name }

// CountTokens estimates tokens as word count times the configured ratio.
func (c *core) CountTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * c.tokensPerWord)
}

// execute runs one attempt function under the retry policy and converts
// the outcome into an accounted CallResult.
func (c *core) execute(
	ctx context.Context,
	req CallRequest,
	attempt func(ctx context.Context) (*rawResult, error),
) (*CallResult, error) {
	if c.apiKey == "" {
		err := &Error{Kind: ErrKindAuthMissing, Provider: c.name, Err: fmt.Errorf("missing API key")}
		log.Errorf("%s call rejected: %v", c.name, err)
		return sentinelResult(c.name, req.Model, ErrKindAuthMissing, "[Error: No API Key]"), err
	}

	start := time.Now()
	raw, err := callWithRetry(ctx, c.retry, c.name, func(parent context.Context) (*rawResult, error) {
		attemptCtx, cancel := context.WithTimeout(parent, c.callTimeout)
		defer cancel()
		return attempt(attemptCtx)
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		kind := classifyError(err)
		result := sentinelResult(c.name, req.Model, kind, sentinelText(c.name, kind, err))
		result.ElapsedMs = elapsed
		return result, &Error{Kind: kind, Provider: c.name, Err: err}
	}

	cost := c.rates.costUSD(c.name, req.Model, raw.inputTokens, raw.outputTokens)
	result := &CallResult{
		ResponseText: raw.text,
		Model:        req.Model,
		Provider:     c.name,
		InputTokens:  raw.inputTokens,
		OutputTokens: raw.outputTokens,
		TotalTokens:  raw.inputTokens + raw.outputTokens,
		CostUSD:      cost,
		ElapsedMs:    elapsed,
	}
	telemetry.RecordProviderCall(ctx, c.name, req.Model, result.TotalTokens, cost)
	log.Infof("%s call successful, tokens: %d, cost: $%.6f", c.name, result.TotalTokens, cost)
	return result, nil
}

// sentinelResult builds the errored-but-usable result for a failed call.
func sentinelResult(providerName, model string, kind ErrorKind, text string) *CallResult {
	return &CallResult{
		ResponseText: text,
		Model:        model,
		Provider:     providerName,
		ErrorKind:    kind,
	}
}

// maxSentinelErrLen caps the error text embedded in a sentinel response.
const maxSentinelErrLen = 80

// sentinelText formats the response placeholder recorded for failed calls.
func sentinelText(providerName string, kind ErrorKind, err error) string {
	if kind == ErrKindTimeout {
		return fmt.Sprintf("[Timeout: %s took too long]", providerName)
	}
	return fmt.Sprintf("[Error: %s]", truncateRunes(err.Error(), maxSentinelErrLen))
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// normalizeRequest applies call defaults in place.
func normalizeRequest(req *CallRequest) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
}

// envAPIKey returns the trimmed environment credential for a backend.
func envAPIKey(envName string) string {
	return strings.TrimSpace(os.Getenv(envName))
}
