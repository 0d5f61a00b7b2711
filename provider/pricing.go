package provider

import "github.com/giridharan-1129/LLM-Evaluation-app/log"

// rate holds per-1000-token USD prices for one model.
type rate struct {
	input  float64
	output float64
}

// rateTable maps model names to prices with a fallback entry for unknown
// models. Prices are pluggable configuration, not a live pricing feed.
type rateTable struct {
	rates    map[string]rate
	fallback string
}

// costUSD computes the call cost from token counts. Unknown models fall
// back to the table's default entry with a warning; pricing gaps are never
// fatal.
func (t rateTable) costUSD(providerName, model string, inputTokens, outputTokens int) float64 {
	r, ok := t.rates[model]
	if !ok {
		log.Warnf("no pricing for %s model %q, using %q rates", providerName, model, t.fallback)
		r = t.rates[t.fallback]
	}
	inputCost := float64(inputTokens) / 1000 * r.input
	outputCost := float64(outputTokens) / 1000 * r.output
	return inputCost + outputCost
}

var openaiRates = rateTable{
	fallback: "gpt-3.5-turbo",
	rates: map[string]rate{
		"gpt-4-turbo":   {input: 0.01, output: 0.03},
		"gpt-4":         {input: 0.03, output: 0.06},
		"gpt-3.5-turbo": {input: 0.0005, output: 0.0015},
	},
}

var deepseekRates = rateTable{
	fallback: "deepseek-chat",
	rates: map[string]rate{
		"deepseek-chat":  {input: 0.0014, output: 0.0028},
		"deepseek-coder": {input: 0.0014, output: 0.0028},
	},
}

var anthropicRates = rateTable{
	fallback: "claude-3-sonnet",
	rates: map[string]rate{
		"claude-3-opus":   {input: 0.015, output: 0.075},
		"claude-3-sonnet": {input: 0.003, output: 0.015},
		"claude-3-haiku":  {input: 0.00025, output: 0.00125},
	},
}
