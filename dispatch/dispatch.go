// Package dispatch fans a rendered prompt out to two model backends
// concurrently and joins both outcomes before returning.
package dispatch

import (
	"context"
	"sync"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
	"github.com/giridharan-1129/LLM-Evaluation-app/provider"
)

// Request is the rendered prompt pair sent to both models.
type Request struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
}

// ModelConfig selects the model and sampling parameters for one slot.
type ModelConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Dispatcher runs the two halves of a dual-model comparison. The second
// slot may be nil for single-model runs.
type Dispatcher struct {
	providerA provider.Provider
	providerB provider.Provider
	configA   ModelConfig
	configB   ModelConfig
}

// New builds a dispatcher. providerB may be nil or configB.Model empty, in
// which case EvaluateRow runs in single-model mode.
func New(providerA provider.Provider, configA ModelConfig, providerB provider.Provider, configB ModelConfig) *Dispatcher {
	return &Dispatcher{
		providerA: providerA,
		providerB: providerB,
		configA:   configA,
		configB:   configB,
	}
}

// DualMode reports whether a second model slot is configured.
func (d *Dispatcher) DualMode() bool {
	return d.providerB != nil && d.configB.Model != ""
}

// EvaluateRow issues both provider calls concurrently and waits for both
// to settle. Provider failures surface inside the returned results as
// sentinel responses, never as a row-aborting error; a slow slot delays
// only the join, not the other slot's call. The second result is nil in
// single-model mode.
func (d *Dispatcher) EvaluateRow(ctx context.Context, req Request) (*provider.CallResult, *provider.CallResult) {
	if !d.DualMode() {
		resultA, err := d.providerA.Call(ctx, callRequest(req, d.configA))
		if err != nil {
			log.Warnf("model A call failed: %v", err)
		}
		return resultA, nil
	}

	var (
		wg      sync.WaitGroup
		resultA *provider.CallResult
		resultB *provider.CallResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		resultA, err = d.providerA.Call(ctx, callRequest(req, d.configA))
		if err != nil {
			log.Warnf("model A call failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		resultB, err = d.providerB.Call(ctx, callRequest(req, d.configB))
		if err != nil {
			log.Warnf("model B call failed: %v", err)
		}
	}()
	wg.Wait()

	return resultA, resultB
}

func callRequest(req Request, cfg ModelConfig) provider.CallRequest {
	return provider.CallRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	}
}
