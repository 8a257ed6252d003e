package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStep struct {
	BaseStep
	executed bool
	fail     error
}

func newStubStep(id string) *stubStep {
	return &stubStep{BaseStep: NewBaseStep(id, "stub "+id)}
}

func (s *stubStep) Execute(ctx context.Context, state *OperationState) error {
	s.executed = true
	return s.fail
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newStubStep("a")))
	require.NoError(t, r.Register(newStubStep("b")))

	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("a"))
	assert.Equal(t, []string{"a", "b"}, r.ListIDs())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newStubStep("a")))
	err := r.Register(newStubStep("a"))

	assert.ErrorContains(t, err, "already registered")
}

func TestRegistryRejectsNilAndEmptyID(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newStubStep("")))
}

func TestRegistryListPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"load", "clean", "reshape", "merge", "derive", "export"} {
		require.NoError(t, r.Register(newStubStep(id)))
	}

	steps := r.List()
	require.Len(t, steps, 6)
	assert.Equal(t, "load", steps[0].ID())
	assert.Equal(t, "export", steps[5].ID())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubStep("a")))

	step, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", step.ID())

	_, err = r.Get("missing")
	assert.ErrorContains(t, err, "not found")
}
