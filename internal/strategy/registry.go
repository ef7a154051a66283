// Package strategy holds the per-run strategy registry and the built-in
// strategies. A Registry is an explicit value created for one run and
// discarded afterwards; there is no global registration.
package strategy

import (
	"sort"
	"sync"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/pipeline"
	"go.uber.org/zap"
)

// Registry manages the strategies available to one run.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]pipeline.Strategy
	logger     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]pipeline.Strategy),
		logger:     l,
	}
}

// Register adds a strategy, replacing any previous one with the same name.
func (r *Registry) Register(s pipeline.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
	r.logger.Debug("strategy registered", zap.String("strategy", s.Name()))
}

// Get retrieves a strategy by name, or ErrStrategyNotFound.
func (r *Registry) Get(name string) (pipeline.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, core.Errorf(core.ErrStrategyNotFound, "%s", name)
	}
	return s, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
