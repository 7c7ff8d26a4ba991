package systems

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSystem struct {
	name   string
	calls  *[]string
	err    error
	resets int
}

func (r *recordingSystem) Name() string { return r.name }

func (r *recordingSystem) FixedUpdate(time.Duration) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func (r *recordingSystem) Reset() error {
	r.resets++
	return r.err
}

func TestPipelineRunsInOrder(t *testing.T) {
	var calls []string
	a := &recordingSystem{name: "a", calls: &calls}
	b := &recordingSystem{name: "b", calls: &calls}
	p := NewPipeline(a, b)

	require.NoError(t, p.FixedUpdate(time.Millisecond))
	require.NoError(t, p.FixedUpdate(time.Millisecond))

	assert.Equal(t, []string{"a", "b", "a", "b"}, calls)
}

func TestPipelineStopsOnError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	p := NewPipeline(
		&recordingSystem{name: "a", calls: &calls, err: boom},
		&recordingSystem{name: "b", calls: &calls},
	)

	err := p.FixedUpdate(time.Millisecond)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, calls)
}

func TestPipelineResetJoinsErrors(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	a := &recordingSystem{name: "a", calls: &calls, err: boom}
	b := &recordingSystem{name: "b", calls: &calls}
	p := NewPipeline(a, b)
	require.NoError(t, b.Reset())

	err := p.Reset()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 2, b.resets)
}
