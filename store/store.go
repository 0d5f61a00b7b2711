// Package store persists completed evaluation cycles so their results
// can be retrieved after the progress stream has ended.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giridharan-1129/LLM-Evaluation-app/pipeline"
)

// ErrNotFound is returned when no cycle exists for the given ID.
var ErrNotFound = errors.New("evaluation cycle not found")

// Cycle is one persisted evaluation run.
type Cycle struct {
	ID        uuid.UUID              `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Summary   *pipeline.CycleSummary `json:"summary"`
	Rows      []*pipeline.RowResult  `json:"rows,omitempty"`
}

// Service stores and retrieves evaluation cycles.
type Service interface {
	// Save persists a finished cycle and returns its assigned ID.
	Save(ctx context.Context, summary *pipeline.CycleSummary, rows []*pipeline.RowResult) (*Cycle, error)
	// Get returns the cycle with the given ID, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Cycle, error)
	// List returns all cycles, newest first. Row results are omitted.
	List(ctx context.Context) ([]*Cycle, error)
}

type inMemoryService struct {
	mu     sync.RWMutex
	cycles map[uuid.UUID]*Cycle
}

// NewInMemory returns a process-local Service backed by a map.
func NewInMemory() Service {
	return &inMemoryService{cycles: make(map[uuid.UUID]*Cycle)}
}

// Save implements Service.
func (s *inMemoryService) Save(_ context.Context, summary *pipeline.CycleSummary, rows []*pipeline.RowResult) (*Cycle, error) {
	if summary == nil {
		return nil, errors.New("cycle summary is nil")
	}
	cycle := &Cycle{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Summary:   summary,
		Rows:      rows,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles[cycle.ID] = cycle
	return cycle, nil
}

// Get implements Service.
func (s *inMemoryService) Get(_ context.Context, id uuid.UUID) (*Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cycle, ok := s.cycles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cycle, nil
}

// List implements Service.
func (s *inMemoryService) List(_ context.Context) ([]*Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cycles := make([]*Cycle, 0, len(s.cycles))
	for _, cycle := range s.cycles {
		cycles = append(cycles, &Cycle{
			ID:        cycle.ID,
			CreatedAt: cycle.CreatedAt,
			Summary:   cycle.Summary,
		})
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].CreatedAt.After(cycles[j].CreatedAt)
	})
	return cycles, nil
}
