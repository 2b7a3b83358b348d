package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/cartlearn/deepcart/environment"
	ts "github.com/cartlearn/deepcart/timestep"
)

const (
	// FailAngle is the angle at which the pole is considered to have
	// fallen over
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// TrackLimit is the distance the cart may travel from the centre
	// of the track before the episode fails
	TrackLimit float64 = 2.4
)

// Balance implements the classic control Cartpole balance task. The
// goal of the agent is to balance the pole on the cart in an upright
// position for as long as possible.
//
// Rewards are +1 for every timestep on which the pole is above the
// fail angle θ and -1 once the pole has fallen below θ or the cart has
// left the track.
//
// Episodes end after a step limit, after the pole has fallen below the
// fail angle, or after the cart has moved off the track.
type Balance struct {
	env.Starter
	stepLimiter  env.Ender
	stateLimiter env.Ender
	failAngle    float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	legalRegions := []r1.Interval{
		{Min: -TrackLimit, Max: TrackLimit},
		{Min: -failAngle, Max: failAngle},
	}
	stateFeatureIndices := []int{0, 2}

	stateLimiter := env.NewIntervalLimit(legalRegions, stateFeatureIndices,
		ts.TerminalStateReached)

	return &Balance{s, stepLimiter, stateLimiter, failAngle}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType to timestep.Last and returns true.
// Otherwise, the function does not adjust the TimeStep and returns
// false.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.stateLimiter.End(t); end {
		return true
	}
	if end := b.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState
func (b *Balance) GetReward(_ mat.Vector, _ mat.Vector,
	nextState mat.Vector) float64 {
	angle := math.Abs(nextState.AtVec(2))
	position := math.Abs(nextState.AtVec(0))

	// Angle of 0 is pointing straight up
	if angle < b.failAngle && position < TrackLimit {
		return 1.0
	}
	return -1.0
}

// AtGoal returns whether or not the goal position has been reached
func (b *Balance) AtGoal(state mat.Matrix) bool {
	return math.Abs(state.At(0, 2)) < b.failAngle
}

// Min returns the minimum possible reward in the environment
func (b *Balance) Min() float64 {
	return -1.0
}

// Max returns the maximum possible reward in the environment
func (b *Balance) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification for the environment
func (b *Balance) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
