package cartpole

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/cartlearn/deepcart/environment"
	ts "github.com/cartlearn/deepcart/timestep"
)

// newFixedStart returns a Starter that always starts episodes at the
// perfectly balanced state
func newFixedStart() env.Starter {
	zero := r1.Interval{Min: 0.0, Max: 0.0}
	return env.NewUniformStarter([]r1.Interval{zero, zero, zero, zero}, 19)
}

func TestNewStartsEpisode(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)
	cartpole, firstStep := New(task, 0.99)

	require.True(t, firstStep.First())
	require.Equal(t, 0, firstStep.Number)
	require.Equal(t, ObservationDims, firstStep.Observation.Len())
	require.Equal(t, 0.99, firstStep.Discount)

	spec := cartpole.ActionSpec()
	require.Equal(t, env.Discrete, spec.Cardinality)
	require.Equal(t, 0.0, spec.LowerBound.AtVec(0))
	require.Equal(t, 1.0, spec.UpperBound.AtVec(0))
}

func TestStepRewardsBalancedPole(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)
	cartpole, _ := New(task, 0.99)

	// A single push from the balanced state cannot move the pole past
	// the fail angle
	action := mat.NewVecDense(1, []float64{1.0})
	step, done := cartpole.Step(action)

	require.False(t, done)
	require.Equal(t, 1.0, step.Reward)
	require.Equal(t, 1, step.Number)
}

func TestStepLimitEndsEpisode(t *testing.T) {
	limit := 5
	task := NewBalance(newFixedStart(), limit, FailAngle)
	cartpole, _ := New(task, 0.99)

	var step ts.TimeStep
	var done bool
	actions := []float64{0.0, 1.0}
	for i := 0; i < limit; i++ {
		require.False(t, done)
		action := mat.NewVecDense(1, []float64{actions[i%2]})
		step, done = cartpole.Step(action)
	}

	require.True(t, done)
	require.True(t, step.Last())
	require.Equal(t, limit, step.Number)
	require.False(t, step.TerminatedNaturally())
	require.Equal(t, ts.Timeout, step.EndType)
}

func TestPoleFallEndsEpisode(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)
	cartpole, _ := New(task, 0.99)

	// Constantly pushing in one direction topples the pole well before
	// the step limit
	action := mat.NewVecDense(1, []float64{1.0})

	var step ts.TimeStep
	var done bool
	for i := 0; i < 500 && !done; i++ {
		step, done = cartpole.Step(action)
	}

	require.True(t, done)
	require.True(t, step.Last())
	require.True(t, step.TerminatedNaturally())
	require.Equal(t, -1.0, step.Reward)
	require.Less(t, step.Number, 500)
}

func TestResetReturnsStartState(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)
	cartpole, _ := New(task, 0.99)

	action := mat.NewVecDense(1, []float64{1.0})
	for i := 0; i < 10; i++ {
		cartpole.Step(action)
	}

	step := cartpole.Reset()
	require.True(t, step.First())
	require.Equal(t, 0, step.Number)
	for i := 0; i < step.Observation.Len(); i++ {
		require.Equal(t, 0.0, step.Observation.AtVec(i))
	}
}

func TestGetRewardFailureStates(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)

	offTrack := mat.NewVecDense(4, []float64{TrackLimit + 0.1, 0, 0, 0})
	require.Equal(t, -1.0, task.GetReward(nil, nil, offTrack))

	fallen := mat.NewVecDense(4, []float64{0, 0, FailAngle + 0.01, 0})
	require.Equal(t, -1.0, task.GetReward(nil, nil, fallen))

	balanced := mat.NewVecDense(4, []float64{0, 0, 0, 0})
	require.Equal(t, 1.0, task.GetReward(nil, nil, balanced))
}

func TestStepPanicsOnIllegalAction(t *testing.T) {
	task := NewBalance(newFixedStart(), 500, FailAngle)
	cartpole, _ := New(task, 0.99)

	require.Panics(t, func() {
		cartpole.Step(mat.NewVecDense(1, []float64{2.0}))
	})
}
