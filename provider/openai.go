package provider

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiVariant holds per-backend defaults for OpenAI-compatible APIs.
// DeepSeek speaks the same chat completion protocol behind its own base
// URL and credential.
type openaiVariant struct {
	defaultBaseURL string
	apiKeyEnv      string
	rates          rateTable
}

var openaiVariants = map[string]openaiVariant{
	NameOpenAI: {
		apiKeyEnv: "OPENAI_API_KEY",
		rates:     openaiRates,
	},
	NameDeepSeek: {
		defaultBaseURL: "https://api.deepseek.com/v1",
		apiKeyEnv:      "DEEPSEEK_API_KEY",
		rates:          deepseekRates,
	},
}

// openaiProvider serves OpenAI and DeepSeek chat completions.
type openaiProvider struct {
	core
	client openai.Client
}

func newOpenAI(name string, o options) *openaiProvider {
	variant := openaiVariants[name]

	apiKey := o.apiKey
	if apiKey == "" {
		apiKey = envAPIKey(variant.apiKeyEnv)
	}
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = variant.defaultBaseURL
	}

	var clientOpts []openaiopt.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	// The SDK retries on its own by default; the retry policy here is the
	// single owner of backoff behavior.
	clientOpts = append(clientOpts, openaiopt.WithMaxRetries(0))

	return &openaiProvider{
		core:   newCore(name, apiKey, variant.rates, o),
		client: openai.NewClient(clientOpts...),
	}
}

// Call sends one chat completion request.
func (p *openaiProvider) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	normalizeRequest(&req)
	return p.execute(ctx, req, func(ctx context.Context) (*rawResult, error) {
		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(req.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.SystemPrompt),
				openai.UserMessage(req.UserPrompt),
			},
			Temperature:         openai.Float(req.Temperature),
			MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		}

		completion, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("no choices in %s completion", p.name)
		}
		return &rawResult{
			text:         completion.Choices[0].Message.Content,
			inputTokens:  int(completion.Usage.PromptTokens),
			outputTokens: int(completion.Usage.CompletionTokens),
		}, nil
	})
}
