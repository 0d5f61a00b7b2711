// Package pipeline runs one evaluation cycle: it renders a prompt per
// dataset row, dispatches it to both models, scores the responses and
// aggregates a cycle summary, streaming progress events along the way.
//
// Row failures (template errors, exhausted providers, unexpected faults)
// are contained at row scope; only faults that prevent any row from being
// attempted abort the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/giridharan-1129/LLM-Evaluation-app/dataset"
	"github.com/giridharan-1129/LLM-Evaluation-app/dispatch"
	"github.com/giridharan-1129/LLM-Evaluation-app/log"
	"github.com/giridharan-1129/LLM-Evaluation-app/metrics"
	"github.com/giridharan-1129/LLM-Evaluation-app/provider"
	"github.com/giridharan-1129/LLM-Evaluation-app/telemetry"
)

// defaultChannelBufferSize is the default event channel buffer size.
const defaultChannelBufferSize = 64

// Status is the lifecycle state of one evaluation cycle.
type Status string

// Cycle statuses.
const (
	StatusPending            Status = "pending"
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusFailed             Status = "failed"
	StatusCancelled          Status = "cancelled"
)

// RowStatus is the terminal state of one row.
type RowStatus string

// Row statuses.
const (
	RowCompleted RowStatus = "completed"
	RowFailed    RowStatus = "failed"
)

// RowResult is the immutable outcome of one evaluated row.
type RowResult struct {
	RowNumber      int                   `json:"row_number"`
	Request        dispatch.Request      `json:"request"`
	ExpectedAnswer string                `json:"expected_answer,omitempty"`
	ResultA        *provider.CallResult  `json:"result_a,omitempty"`
	ResultB        *provider.CallResult  `json:"result_b,omitempty"`
	MetricsA       *metrics.MetricSet    `json:"metrics_a,omitempty"`
	MetricsB       *metrics.MetricSet    `json:"metrics_b,omitempty"`
	Winner         metrics.Winner        `json:"winner"`
	Confidence     *float64              `json:"confidence,omitempty"`
	Status         RowStatus             `json:"status"`
	ErrorMessage   string                `json:"error,omitempty"`
}

// CycleSummary aggregates one full cycle. It is computed once, when the
// run finishes.
type CycleSummary struct {
	Status        Status             `json:"status"`
	TotalRows     int                `json:"total_rows"`
	ProcessedRows int                `json:"processed_rows"`
	FailedRows    int                `json:"failed_rows"`
	TotalTokensA  int                `json:"total_tokens_a"`
	TotalTokensB  int                `json:"total_tokens_b,omitempty"`
	TotalCostA    float64            `json:"total_cost_a"`
	TotalCostB    float64            `json:"total_cost_b,omitempty"`
	MetricsA      *metrics.Aggregate `json:"metrics_a,omitempty"`
	MetricsB      *metrics.Aggregate `json:"metrics_b,omitempty"`
	ModelAWins    int                `json:"model_a_wins"`
	ModelBWins    int                `json:"model_b_wins"`
	Ties          int                `json:"ties"`
}

// EventType discriminates progress stream messages.
type EventType string

// Event types, in the order they may appear on the stream.
const (
	EventStart       EventType = "start"
	EventRowComplete EventType = "row_complete"
	EventRowError    EventType = "row_error"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is one self-contained progress stream message. Row events are
// delivered in row-number order; start precedes all row events and
// exactly one complete or error event terminates the stream.
type Event struct {
	Type      EventType     `json:"type"`
	TotalRows int           `json:"total_rows"`
	RowNumber int           `json:"row_number,omitempty"`
	Progress  int           `json:"progress"`
	Result    *RowResult    `json:"result,omitempty"`
	Summary   *CycleSummary `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
	// CycleID is set on the terminal complete event when the run has
	// been persisted.
	CycleID string `json:"cycle_id,omitempty"`
}

// Config is the input contract for one cycle.
type Config struct {
	// SystemPrompt is sent verbatim to both models.
	SystemPrompt string
	// UserPromptTemplate carries {field} placeholders resolved per row.
	UserPromptTemplate string
	// ExpectedColumn names the column holding the expected answer. Rows
	// without a value in this column are dispatched but not scored.
	ExpectedColumn string
	// Rows is the dataset to evaluate.
	Rows []dataset.Row
}

// Pipeline evaluates dataset rows through a dispatcher.
type Pipeline struct {
	dispatcher  *dispatch.Dispatcher
	bufferSize  int
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChannelBufferSize sets the event channel buffer size.
func WithChannelBufferSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

// WithRowConcurrency evaluates up to n rows at a time. Event emission
// stays ordered by row number regardless of completion order.
func WithRowConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New builds a pipeline over the given dispatcher.
func New(dispatcher *dispatch.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		dispatcher:  dispatcher,
		bufferSize:  defaultChannelBufferSize,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream runs the cycle and returns the ordered event channel. The
// channel is closed after the terminal event. Cancelling ctx stops new
// rows from being dispatched; rows already in flight complete and are
// recorded, and the summary covers every recorded row with status
// cancelled.
func (p *Pipeline) Stream(ctx context.Context, cfg Config) <-chan *Event {
	ch := make(chan *Event, p.bufferSize)
	go func() {
		defer close(ch)
		p.run(ctx, cfg, func(evt *Event) { ch <- evt })
	}()
	return ch
}

// Run executes the cycle in batch mode, returning the summary and the
// full ordered row results. The returned error is non-nil only for
// run-level faults that prevented any row from being attempted.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*CycleSummary, []*RowResult, error) {
	var runErr error
	summary, rows := p.runCollect(ctx, cfg, func(evt *Event) {
		if evt.Type == EventError {
			runErr = fmt.Errorf("%s", evt.Error)
		}
	})
	if runErr != nil {
		return nil, nil, runErr
	}
	return summary, rows, nil
}

// run drives one cycle and forwards every event to emit.
func (p *Pipeline) run(ctx context.Context, cfg Config, emit func(*Event)) {
	p.runCollect(ctx, cfg, emit)
}

func (p *Pipeline) runCollect(ctx context.Context, cfg Config, emit func(*Event)) (*CycleSummary, []*RowResult) {
	total := len(cfg.Rows)
	if total == 0 {
		log.Error("evaluation run rejected: dataset has no rows")
		emit(&Event{Type: EventError, Error: "dataset has no rows"})
		return nil, nil
	}

	log.Infof("starting evaluation cycle with %d rows", total)
	emit(&Event{Type: EventStart, TotalRows: total})

	state := newRunState(total)
	var cancelled bool
	if p.concurrency > 1 {
		cancelled = p.runParallel(ctx, cfg, state, emit)
	} else {
		cancelled = p.runSequential(ctx, cfg, state, emit)
	}

	status := StatusCompleted
	switch {
	case cancelled:
		status = StatusCancelled
	case state.failed > 0:
		status = StatusPartiallyCompleted
	}
	summary := state.finalize(status, p.dispatcher.DualMode())

	log.Infof("evaluation cycle %s: processed=%d failed=%d cost=$%.6f",
		status, summary.ProcessedRows, summary.FailedRows, summary.TotalCostA+summary.TotalCostB)
	emit(&Event{Type: EventComplete, TotalRows: total, Summary: summary})
	return summary, state.rows
}

// runSequential processes rows one at a time, checking for cancellation
// between rows.
func (p *Pipeline) runSequential(ctx context.Context, cfg Config, state *runState, emit func(*Event)) bool {
	// Rows already dispatched are allowed to finish even after ctx is
	// cancelled, so their token usage and cost are still recorded.
	rowCtx := context.WithoutCancel(ctx)
	for i, row := range cfg.Rows {
		if ctx.Err() != nil {
			log.Warnf("evaluation cancelled before row %d", i+1)
			return true
		}
		result := p.evaluateRow(rowCtx, cfg, i+1, row)
		state.record(rowCtx, result)
		emit(rowEvent(result, state))
	}
	return false
}

// rowEvent frames one recorded row as a stream event.
func rowEvent(result *RowResult, state *runState) *Event {
	if result.Status == RowFailed {
		return &Event{
			Type:      EventRowError,
			RowNumber: result.RowNumber,
			Error:     result.ErrorMessage,
			Result:    result,
		}
	}
	return &Event{
		Type:      EventRowComplete,
		RowNumber: result.RowNumber,
		TotalRows: state.total,
		Progress:  state.progress(),
		Result:    result,
	}
}

// evaluateRow renders, dispatches and scores a single row. Any fault is
// converted into a failed RowResult; it never panics outward.
func (p *Pipeline) evaluateRow(ctx context.Context, cfg Config, rowNumber int, row dataset.Row) (result *RowResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("row %d panicked: %v", rowNumber, r)
			result = failedRow(rowNumber, dispatch.Request{}, fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	userPrompt, err := renderTemplate(cfg.UserPromptTemplate, row)
	if err != nil {
		log.Warnf("row %d template error: %v", rowNumber, err)
		return failedRow(rowNumber, dispatch.Request{}, err.Error())
	}
	req := dispatch.Request{SystemPrompt: cfg.SystemPrompt, UserPrompt: userPrompt}

	resultA, resultB := p.dispatcher.EvaluateRow(ctx, req)
	if resultA == nil {
		return failedRow(rowNumber, req, "model A returned no result")
	}

	rowResult := &RowResult{
		RowNumber: rowNumber,
		Request:   req,
		ResultA:   resultA,
		ResultB:   resultB,
		Winner:    metrics.WinnerUndetermined,
		Status:    RowCompleted,
	}

	expected, hasExpected := "", false
	if cfg.ExpectedColumn != "" {
		expected, hasExpected = row.Get(cfg.ExpectedColumn)
		hasExpected = hasExpected && expected != ""
	}
	if hasExpected {
		rowResult.ExpectedAnswer = expected
		setA := metrics.Score(resultA.ResponseText, expected)
		rowResult.MetricsA = &setA
		if resultB != nil {
			setB := metrics.Score(resultB.ResponseText, expected)
			rowResult.MetricsB = &setB
			winner, confidence := metrics.DetermineWinner(
				float64(setA.ExactMatch), float64(setB.ExactMatch))
			rowResult.Winner = winner
			rowResult.Confidence = &confidence
		}
	}
	return rowResult
}

// failedRow builds the terminal record of a row that could not complete.
func failedRow(rowNumber int, req dispatch.Request, message string) *RowResult {
	return &RowResult{
		RowNumber:    rowNumber,
		Request:      req,
		Winner:       metrics.WinnerUndetermined,
		Status:       RowFailed,
		ErrorMessage: message,
	}
}

// runState owns the running totals of one cycle. It is mutated only by
// the single control flow that drains row outcomes.
type runState struct {
	total     int
	processed int
	failed    int

	rows []*RowResult

	metricsA []metrics.MetricSet
	metricsB []metrics.MetricSet

	tokensA, tokensB int
	costA, costB     float64

	winsA, winsB, ties int
}

func newRunState(total int) *runState {
	return &runState{total: total}
}

// record folds one row outcome into the totals.
func (s *runState) record(ctx context.Context, result *RowResult) {
	s.rows = append(s.rows, result)
	if result.Status == RowFailed {
		s.failed++
		telemetry.RecordRow(ctx, true)
		return
	}
	s.processed++
	telemetry.RecordRow(ctx, false)

	if result.ResultA != nil {
		s.tokensA += result.ResultA.TotalTokens
		s.costA += result.ResultA.CostUSD
	}
	if result.ResultB != nil {
		s.tokensB += result.ResultB.TotalTokens
		s.costB += result.ResultB.CostUSD
	}
	if result.MetricsA != nil {
		s.metricsA = append(s.metricsA, *result.MetricsA)
	}
	if result.MetricsB != nil {
		s.metricsB = append(s.metricsB, *result.MetricsB)
	}
	switch result.Winner {
	case metrics.WinnerA:
		s.winsA++
	case metrics.WinnerB:
		s.winsB++
	case metrics.WinnerTie:
		s.ties++
	}
}

// progress is the integer percentage of rows attempted so far.
func (s *runState) progress() int {
	return 100 * (s.processed + s.failed) / s.total
}

// finalize computes the cycle summary from the accumulated totals.
func (s *runState) finalize(status Status, dualMode bool) *CycleSummary {
	summary := &CycleSummary{
		Status:        status,
		TotalRows:     s.total,
		ProcessedRows: s.processed,
		FailedRows:    s.failed,
		TotalTokensA:  s.tokensA,
		TotalTokensB:  s.tokensB,
		TotalCostA:    s.costA,
		TotalCostB:    s.costB,
		ModelAWins:    s.winsA,
		ModelBWins:    s.winsB,
		Ties:          s.ties,
	}
	if len(s.metricsA) > 0 {
		aggA := metrics.AggregateSets(s.metricsA)
		summary.MetricsA = &aggA
	}
	if dualMode && len(s.metricsB) > 0 {
		aggB := metrics.AggregateSets(s.metricsB)
		summary.MetricsB = &aggB
	}
	return summary
}
