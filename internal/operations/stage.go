package operations

import (
	"context"
	"sync"
	"time"
)

// Step is a single stage of a preprocessing operation. Steps run strictly
// in registration order and communicate through the OperationState.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() string

	// Name returns the human-readable name for this step.
	Name() string

	// Validate checks whether the step can run against the current state.
	Validate(state *OperationState) error

	// Execute runs the step with the given context and operation state.
	Execute(ctx context.Context, state *OperationState) error
}

// StepStatus represents the current status of a step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime state of one step within an operation.
type StepState struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    StepStatus
	startTime *time.Time
	endTime   *time.Time
	message   string
	err       error
}

// NewStepState creates a pending step state.
func NewStepState(id, name string) *StepState {
	return &StepState{id: id, name: name, status: StepStatusPending}
}

// Start marks the step active.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.startTime = &now
	s.status = StepStatusActive
}

// Complete marks the step completed.
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StepStatusCompleted
}

// Fail marks the step failed with the given error.
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StepStatusFailed
	s.err = err
}

// Skip marks the step skipped with a reason.
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StepStatusSkipped
	s.message = reason
}

// Status returns the current status.
func (s *StepState) Status() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the failure cause, if any.
func (s *StepState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Duration returns how long the step has been running, or ran.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime == nil {
		return 0
	}
	if s.endTime != nil {
		return s.endTime.Sub(*s.startTime)
	}
	return time.Since(*s.startTime)
}

// StepSnapshot is the immutable JSON view of a step state.
type StepSnapshot struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
	Duration string     `json:"duration,omitempty"`
}

// Snapshot renders the step state for status responses and broadcasts.
func (s *StepState) Snapshot() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := StepSnapshot{
		ID:      s.id,
		Name:    s.name,
		Status:  s.status,
		Message: s.message,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	if s.startTime != nil {
		end := time.Now()
		if s.endTime != nil {
			end = *s.endTime
		}
		snap.Duration = end.Sub(*s.startTime).String()
	}
	return snap
}

// BaseStep provides the identity boilerplate for step implementations.
type BaseStep struct {
	id   string
	name string
}

// NewBaseStep creates a base step with the given identity.
func NewBaseStep(id, name string) BaseStep {
	return BaseStep{id: id, name: name}
}

// ID returns the step ID.
func (b *BaseStep) ID() string { return b.id }

// Name returns the step name.
func (b *BaseStep) Name() string { return b.name }

// Validate passes by default.
func (b *BaseStep) Validate(state *OperationState) error { return nil }
