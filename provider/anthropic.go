package provider

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"

// anthropicProvider serves the Anthropic messages API.
type anthropicProvider struct {
	core
	client anthropic.Client
}

func newAnthropic(o options) *anthropicProvider {
	apiKey := o.apiKey
	if apiKey == "" {
		apiKey = envAPIKey(anthropicAPIKeyEnv)
	}

	var clientOpts []anthropicopt.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, anthropicopt.WithAPIKey(apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, anthropicopt.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, anthropicopt.WithMaxRetries(0))

	return &anthropicProvider{
		core:   newCore(NameAnthropic, apiKey, anthropicRates, o),
		client: anthropic.NewClient(clientOpts...),
	}
}

// Call sends one messages request.
func (p *anthropicProvider) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	normalizeRequest(&req)
	return p.execute(ctx, req, func(ctx context.Context) (*rawResult, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: int64(req.MaxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
			},
			Temperature: anthropic.Float(req.Temperature),
		}
		if req.SystemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
		}

		message, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return nil, err
		}

		var text strings.Builder
		for _, content := range message.Content {
			if block, ok := content.AsAny().(anthropic.TextBlock); ok {
				text.WriteString(block.Text)
			}
		}
		if text.Len() == 0 && len(message.Content) == 0 {
			return nil, fmt.Errorf("no content in %s message", p.name)
		}
		return &rawResult{
			text:         text.String(),
			inputTokens:  int(message.Usage.InputTokens),
			outputTokens: int(message.Usage.OutputTokens),
		}, nil
	})
}
