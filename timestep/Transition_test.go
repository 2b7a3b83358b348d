package timestep

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewTransitionMidEpisode(t *testing.T) {
	state := mat.NewVecDense(4, []float64{0.1, 0.2, 0.3, 0.4})
	nextState := mat.NewVecDense(4, []float64{0.5, 0.6, 0.7, 0.8})
	action := mat.NewVecDense(2, []float64{0.0, 1.0})

	step := New(Mid, 1.0, 0.99, state, 3)
	nextStep := New(Mid, 1.0, 0.99, nextState, 4)

	transition := NewTransition(step, action, nextStep)

	require.False(t, transition.Terminal())
	require.Equal(t, 0.99, transition.Discount)
	require.Equal(t, 1.0, transition.Reward)
	require.True(t, mat.Equal(state, transition.State))
	require.True(t, mat.Equal(nextState, transition.NextState))
}

func TestNewTransitionTerminalSentinel(t *testing.T) {
	// Any episode-ending next step must store the zero next-state
	// vector and a discount of 0, regardless of the observation the
	// environment produced on that step.
	state := mat.NewVecDense(4, []float64{0.1, 0.2, 0.3, 0.4})
	nextState := mat.NewVecDense(4, []float64{2.5, 0.6, 0.7, 0.8})
	action := mat.NewVecDense(2, []float64{1.0, 0.0})

	step := New(Mid, 1.0, 0.99, state, 7)
	nextStep := New(Last, -1.0, 0.99, nextState, 8)
	nextStep.SetEnd(TerminalStateReached)

	transition := NewTransition(step, action, nextStep)

	require.True(t, transition.Terminal())
	require.Equal(t, 0.0, transition.Discount)
	require.Equal(t, -1.0, transition.Reward)
	require.True(t, mat.Equal(TerminalSentinel(4), transition.NextState))
}

func TestNewTransitionTimeoutSentinel(t *testing.T) {
	// Episodes cut off at a step limit are stored the same way as
	// natural terminations
	state := mat.NewVecDense(2, []float64{0.1, 0.2})
	nextState := mat.NewVecDense(2, []float64{0.3, 0.4})
	action := mat.NewVecDense(1, []float64{1.0})

	step := New(Mid, 1.0, 0.99, state, 499)
	nextStep := New(Last, 1.0, 0.99, nextState, 500)
	nextStep.SetEnd(Timeout)

	transition := NewTransition(step, action, nextStep)

	require.True(t, transition.Terminal())
	require.False(t, nextStep.TerminatedNaturally())
	require.True(t, mat.Equal(TerminalSentinel(2), transition.NextState))
}

func TestTerminalSentinelIsZeroVector(t *testing.T) {
	sentinel := TerminalSentinel(4)
	require.Equal(t, 4, sentinel.Len())
	for i := 0; i < sentinel.Len(); i++ {
		require.Equal(t, 0.0, sentinel.AtVec(i))
	}
}
