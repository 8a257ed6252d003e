package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UpdateFunc receives an operation snapshot after every state change. The
// websocket hub plugs in here to push progress to clients.
type UpdateFunc func(Snapshot)

// Manager owns operation execution: it keeps the step registry, tracks all
// operation states by ID and runs the steps strictly in registration order.
type Manager struct {
	registry *Registry
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	onUpdate UpdateFunc

	mu         sync.RWMutex
	operations map[string]*OperationState
}

// NewManager creates a manager around the given registry. Metrics may be
// nil when instrumentation is not wanted, as in most tests.
func NewManager(registry *Registry, metrics *Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:   registry,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "operation_manager")),
		tracer:     otel.Tracer("tuesdata/operations"),
		operations: make(map[string]*OperationState),
	}
}

// OnUpdate sets the snapshot callback. Must be called before Run.
func (m *Manager) OnUpdate(fn UpdateFunc) { m.onUpdate = fn }

// Registry returns the step registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Get returns the state of an operation by ID.
func (m *Manager) Get(id string) (*OperationState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operations[id]
	return op, ok
}

// List returns a snapshot of every known operation.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.operations))
	for _, op := range m.operations {
		out = append(out, op.Snapshot())
	}
	return out
}

// Start creates a new pending operation for the request and returns it. Use
// Run or RunAsync to execute it.
func (m *Manager) Start(request Request) *OperationState {
	state := NewOperationState(uuid.New().String(), request, m.registry.List())

	m.mu.Lock()
	m.operations[state.ID()] = state
	m.mu.Unlock()

	return state
}

// Run executes an operation synchronously, step by step. The first failing
// step aborts the run; remaining steps stay pending.
func (m *Manager) Run(ctx context.Context, state *OperationState) error {
	ctx, span := m.tracer.Start(ctx, "operation.run",
		trace.WithAttributes(attribute.String("operation.id", state.ID())))
	defer span.End()

	state.setStatus(OperationStatusRunning)
	m.broadcast(state)

	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", state.ID()),
		slog.Int("steps", m.registry.Count()))

	for _, step := range m.registry.List() {
		if err := m.runStep(ctx, state, step); err != nil {
			state.fail(fmt.Errorf("step %s: %w", step.ID(), err))
			m.observeOutcome(OperationStatusFailed)
			m.broadcast(state)
			m.logger.ErrorContext(ctx, "operation failed",
				slog.String("operation_id", state.ID()),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		m.broadcast(state)
	}

	state.setStatus(OperationStatusCompleted)
	m.observeOutcome(OperationStatusCompleted)
	m.broadcast(state)

	m.logger.InfoContext(ctx, "operation completed",
		slog.String("operation_id", state.ID()))
	return nil
}

// RunAsync executes an operation on its own goroutine and returns at once.
// Progress is observable through Get and the update callback.
func (m *Manager) RunAsync(ctx context.Context, state *OperationState) {
	go func() {
		if err := m.Run(ctx, state); err != nil {
			// already recorded on the state
			_ = err
		}
	}()
}

func (m *Manager) runStep(ctx context.Context, state *OperationState, step Step) error {
	ctx, span := m.tracer.Start(ctx, "operation.step",
		trace.WithAttributes(
			attribute.String("operation.id", state.ID()),
			attribute.String("step.id", step.ID())))
	defer span.End()

	ss, ok := state.StepState(step.ID())
	if !ok {
		return fmt.Errorf("no state for step %s", step.ID())
	}

	if err := step.Validate(state); err != nil {
		ss.Fail(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	ss.Start()
	m.broadcast(state)

	if err := step.Execute(ctx, state); err != nil {
		ss.Fail(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Execute may have marked the step skipped
	if ss.Status() == StepStatusActive {
		ss.Complete()
	}
	if m.metrics != nil {
		m.metrics.StepDuration.WithLabelValues(step.ID()).Observe(ss.Duration().Seconds())
	}
	return nil
}

func (m *Manager) observeOutcome(status OperationStatus) {
	if m.metrics != nil {
		m.metrics.OperationsTotal.WithLabelValues(string(status)).Inc()
	}
}

func (m *Manager) broadcast(state *OperationState) {
	if m.onUpdate != nil {
		m.onUpdate(state.Snapshot())
	}
}
