package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/giridharan-1129/LLM-Evaluation-app/dataset"
	"github.com/giridharan-1129/LLM-Evaluation-app/dispatch"
	"github.com/giridharan-1129/LLM-Evaluation-app/log"
	"github.com/giridharan-1129/LLM-Evaluation-app/pipeline"
	"github.com/giridharan-1129/LLM-Evaluation-app/provider"
	"github.com/giridharan-1129/LLM-Evaluation-app/stream"
)

// defaultTemperature is applied when a model slot omits its sampling
// temperature.
const defaultTemperature = 0.7

// evaluateRequest is the JSON body of POST /api/v1/evaluate/rows.
type evaluateRequest struct {
	SystemPrompt       string              `json:"system_prompt"`
	UserPromptTemplate string              `json:"user_prompt_template"`
	ExpectedColumn     string              `json:"expected_column"`
	Rows               []map[string]string `json:"rows"`

	ProviderA    string   `json:"provider_a"`
	ModelA       string   `json:"model_a"`
	TemperatureA *float64 `json:"temperature_a,omitempty"`

	ProviderB    string   `json:"provider_b,omitempty"`
	ModelB       string   `json:"model_b,omitempty"`
	TemperatureB *float64 `json:"temperature_b,omitempty"`

	MaxTokens int `json:"max_tokens,omitempty"`

	OpenAIKey    string `json:"openai_key,omitempty"`
	DeepSeekKey  string `json:"deepseek_key,omitempty"`
	AnthropicKey string `json:"anthropic_key,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleEvaluateRows runs one evaluation cycle over the posted rows and
// streams NDJSON progress events. The finished cycle is persisted and
// its ID is attached to the terminal complete event.
func (s *Server) handleEvaluateRows(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	dispatcher, err := s.buildDispatcher(&req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []pipeline.Option
	if s.rowConcurrency > 1 {
		opts = append(opts, pipeline.WithRowConcurrency(s.rowConcurrency))
	}
	p := pipeline.New(dispatcher, opts...)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writer := stream.NewWriter(w)
	var rows []*pipeline.RowResult
	// Client disconnects cancel the request context, which stops new
	// rows from being dispatched.
	for evt := range p.Stream(r.Context(), pipeline.Config{
		SystemPrompt:       req.SystemPrompt,
		UserPromptTemplate: req.UserPromptTemplate,
		ExpectedColumn:     req.ExpectedColumn,
		Rows:               datasetRows(req.Rows),
	}) {
		if evt.Result != nil {
			rows = append(rows, evt.Result)
		}
		if evt.Type == pipeline.EventComplete && evt.Summary != nil {
			cycle, err := s.cycles.Save(r.Context(), evt.Summary, rows)
			if err != nil {
				log.Errorf("persist evaluation cycle: %v", err)
			} else {
				evt.CycleID = cycle.ID.String()
			}
		}
		if err := writer.Write(evt); err != nil {
			log.Warnf("progress stream write failed: %v", err)
			return
		}
	}
}

// buildDispatcher assembles the two provider slots from the request.
func (s *Server) buildDispatcher(req *evaluateRequest) (*dispatch.Dispatcher, error) {
	if req.ProviderA == "" || req.ModelA == "" {
		return nil, errors.New("provider_a and model_a are required")
	}
	providerA, err := s.buildProvider(req, req.ProviderA)
	if err != nil {
		return nil, fmt.Errorf("model A: %w", err)
	}
	configA := dispatch.ModelConfig{
		Model:       req.ModelA,
		Temperature: temperatureOrDefault(req.TemperatureA),
		MaxTokens:   req.MaxTokens,
	}

	if req.ProviderB == "" && req.ModelB == "" {
		return dispatch.New(providerA, configA, nil, dispatch.ModelConfig{}), nil
	}
	if req.ProviderB == "" || req.ModelB == "" {
		return nil, errors.New("provider_b and model_b must be set together")
	}
	providerB, err := s.buildProvider(req, req.ProviderB)
	if err != nil {
		return nil, fmt.Errorf("model B: %w", err)
	}
	configB := dispatch.ModelConfig{
		Model:       req.ModelB,
		Temperature: temperatureOrDefault(req.TemperatureB),
		MaxTokens:   req.MaxTokens,
	}
	return dispatch.New(providerA, configA, providerB, configB), nil
}

func (s *Server) buildProvider(req *evaluateRequest, name string) (provider.Provider, error) {
	var opts []provider.Option
	if key := requestKey(req, name); key != "" {
		opts = append(opts, provider.WithAPIKey(key))
	}
	return provider.New(name, opts...)
}

// requestKey returns the caller-supplied API key for the named backend.
// An empty key leaves the provider on its environment fallback.
func requestKey(req *evaluateRequest, name string) string {
	switch name {
	case provider.NameOpenAI:
		return req.OpenAIKey
	case provider.NameDeepSeek:
		return req.DeepSeekKey
	case provider.NameAnthropic:
		return req.AnthropicKey
	}
	return ""
}

func temperatureOrDefault(t *float64) float64 {
	if t != nil {
		return *t
	}
	return defaultTemperature
}

// datasetRows converts the request payload into dataset rows with a
// stable column order.
func datasetRows(raw []map[string]string) []dataset.Row {
	rows := make([]dataset.Row, 0, len(raw))
	for _, values := range raw {
		columns := make([]string, 0, len(values))
		for column := range values {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		rows = append(rows, dataset.Row{Columns: columns, Values: values})
	}
	return rows
}

// handleGetCycle returns one persisted cycle with its full row results.
func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["cycleID"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid cycle ID")
		return
	}
	cycle, err := s.cycles.Get(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// handleListCycles returns all persisted cycle summaries, newest first.
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := s.cycles.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cycles)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
