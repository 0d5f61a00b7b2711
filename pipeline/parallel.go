package pipeline

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/giridharan-1129/LLM-Evaluation-app/dispatch"
	"github.com/giridharan-1129/LLM-Evaluation-app/log"
)

// rowOutcome pairs a finished row with its index so the drain loop can
// restore submission order.
type rowOutcome struct {
	index  int
	result *RowResult
}

// runParallel evaluates up to p.concurrency rows at a time on a shared
// goroutine pool. The drain loop runs alongside submission so workers
// never block on a full outcomes channel; a pending buffer keyed by
// index releases results strictly in row order, so totals and events
// behave exactly as in the sequential path. Returns true if the run was
// cancelled before every row was submitted.
func (p *Pipeline) runParallel(ctx context.Context, cfg Config, state *runState, emit func(*Event)) bool {
	pool, err := ants.NewPool(p.concurrency)
	if err != nil {
		log.Errorf("row pool init failed, falling back to sequential: %v", err)
		return p.runSequential(ctx, cfg, state, emit)
	}
	defer pool.Release()

	rowCtx := context.WithoutCancel(ctx)
	outcomes := make(chan rowOutcome, p.concurrency)

	// Drain concurrently with submission. This goroutine is the sole
	// owner of state until drained is closed.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		pending := make(map[int]*RowResult, p.concurrency)
		next := 0
		for outcome := range outcomes {
			pending[outcome.index] = outcome.result
			for {
				result, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				state.record(rowCtx, result)
				emit(rowEvent(result, state))
			}
		}
	}()

	var wg sync.WaitGroup
	cancelled := false
	for i, row := range cfg.Rows {
		if ctx.Err() != nil {
			log.Warnf("evaluation cancelled before row %d", i+1)
			cancelled = true
			break
		}
		index, r := i, row
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			outcomes <- rowOutcome{
				index:  index,
				result: p.evaluateRow(rowCtx, cfg, index+1, r),
			}
		}); err != nil {
			wg.Done()
			outcomes <- rowOutcome{
				index:  index,
				result: failedRow(index+1, dispatch.Request{}, err.Error()),
			}
		}
	}

	wg.Wait()
	close(outcomes)
	<-drained
	return cancelled
}
