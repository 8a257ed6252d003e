package operations

import (
	"sync"
	"time"

	"tuesdata/internal/dataset"
)

// OperationStatus represents the lifecycle of a whole operation.
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

// Request names the input files of one preprocessing run. Paths are
// resolved by the loader; a Request with empty paths is only valid when the
// tables were injected up front.
type Request struct {
	CatalogPath    string `json:"catalog_path" validate:"omitempty"`
	PlayLogPath    string `json:"playlog_path" validate:"omitempty"`
	RequestLogPath string `json:"requestlog_path" validate:"omitempty"`
}

// Tables holds every table an operation produces as it moves through the
// steps. Later steps read what earlier steps wrote.
type Tables struct {
	Catalog    *dataset.Table
	PlayLog    *dataset.Table
	RequestLog *dataset.Table

	CleanCatalog    *dataset.Table
	CleanPlayLog    *dataset.Table
	CleanRequestLog *dataset.Table

	PlayLong    *dataset.Table
	RequestLong *dataset.Table

	Merged   *dataset.Table
	Combined *dataset.Table
}

// OperationState is the shared state of one operation run. Steps mutate the
// Tables; the manager owns status transitions and snapshots.
type OperationState struct {
	mu        sync.RWMutex
	id        string
	status    OperationStatus
	request   Request
	steps     []*StepState
	stepIndex map[string]*StepState
	startTime time.Time
	endTime   *time.Time
	err       error

	Tables Tables
}

// NewOperationState creates a pending operation with one StepState per
// registered step, in order.
func NewOperationState(id string, request Request, steps []Step) *OperationState {
	st := &OperationState{
		id:        id,
		status:    OperationStatusPending,
		request:   request,
		stepIndex: make(map[string]*StepState, len(steps)),
		startTime: time.Now(),
	}
	for _, s := range steps {
		ss := NewStepState(s.ID(), s.Name())
		st.steps = append(st.steps, ss)
		st.stepIndex[s.ID()] = ss
	}
	return st
}

// ID returns the operation identifier.
func (o *OperationState) ID() string { return o.id }

// Request returns the input file request.
func (o *OperationState) Request() Request { return o.request }

// Status returns the operation status.
func (o *OperationState) Status() OperationStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Err returns the failure cause, if any.
func (o *OperationState) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// StepState returns the state of the identified step.
func (o *OperationState) StepState(id string) (*StepState, bool) {
	s, ok := o.stepIndex[id]
	return s, ok
}

func (o *OperationState) setStatus(status OperationStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
	if status == OperationStatusCompleted || status == OperationStatusFailed {
		now := time.Now()
		o.endTime = &now
	}
}

func (o *OperationState) fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = OperationStatusFailed
	o.err = err
	now := time.Now()
	o.endTime = &now
}

// Snapshot is the immutable JSON view of an operation.
type Snapshot struct {
	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	Steps     []StepSnapshot  `json:"steps"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Rows      int             `json:"combined_rows,omitempty"`
}

// Snapshot renders the current operation state.
func (o *OperationState) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	snap := Snapshot{
		ID:        o.id,
		Status:    o.status,
		StartedAt: o.startTime,
		EndedAt:   o.endTime,
	}
	if o.err != nil {
		snap.Error = o.err.Error()
	}
	if o.Tables.Combined != nil {
		snap.Rows = o.Tables.Combined.RowCount()
	}
	for _, s := range o.steps {
		snap.Steps = append(snap.Steps, s.Snapshot())
	}
	return snap
}
