// Package telemetry exposes OpenTelemetry counters for provider usage and
// pipeline progress. Recording is a no-op unless the host application
// installs a meter provider via otel.SetMeterProvider.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
)

// instrumentName identifies this module's meter.
const instrumentName = "github.com/giridharan-1129/LLM-Evaluation-app"

var (
	initOnce sync.Once

	providerTokens metric.Int64Counter
	providerCost   metric.Float64Counter
	rowsProcessed  metric.Int64Counter
	rowsFailed     metric.Int64Counter
)

func instruments() {
	initOnce.Do(func() {
		meter := otel.Meter(instrumentName)
		var err error
		if providerTokens, err = meter.Int64Counter(
			"llm_eval.provider.tokens",
			metric.WithDescription("Total tokens reported by provider calls."),
		); err != nil {
			log.Warnf("create provider token counter: %v", err)
		}
		if providerCost, err = meter.Float64Counter(
			"llm_eval.provider.cost_usd",
			metric.WithDescription("Estimated cost of provider calls in USD."),
		); err != nil {
			log.Warnf("create provider cost counter: %v", err)
		}
		if rowsProcessed, err = meter.Int64Counter(
			"llm_eval.pipeline.rows_processed",
			metric.WithDescription("Rows processed to completion."),
		); err != nil {
			log.Warnf("create rows processed counter: %v", err)
		}
		if rowsFailed, err = meter.Int64Counter(
			"llm_eval.pipeline.rows_failed",
			metric.WithDescription("Rows that failed and were recorded as such."),
		); err != nil {
			log.Warnf("create rows failed counter: %v", err)
		}
	})
}

// RecordProviderCall records token usage and cost of one provider call.
func RecordProviderCall(ctx context.Context, providerName, model string, totalTokens int, costUSD float64) {
	instruments()
	attrs := metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.String("model", model),
	)
	if providerTokens != nil {
		providerTokens.Add(ctx, int64(totalTokens), attrs)
	}
	if providerCost != nil {
		providerCost.Add(ctx, costUSD, attrs)
	}
}

// RecordRow records the outcome of one pipeline row.
func RecordRow(ctx context.Context, failed bool) {
	instruments()
	if failed {
		if rowsFailed != nil {
			rowsFailed.Add(ctx, 1)
		}
		return
	}
	if rowsProcessed != nil {
		rowsProcessed.Add(ctx, 1)
	}
}
