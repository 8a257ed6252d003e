package operations

import (
	"fmt"
	"sync"
)

// Registry holds the operation steps in registration order. The pipeline
// has a fixed linear order, so registration order is execution order.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds a step to the registry.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step with ID %s already registered", id)
	}
	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a step by ID.
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, fmt.Errorf("step with ID %s not found", id)
	}
	return step, nil
}

// Has checks whether a step is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.steps[id]
	return exists
}

// List returns the registered steps in registration order.
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// ListIDs returns the registered step IDs in registration order.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered steps.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}
