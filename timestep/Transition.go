package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together a single environmental transition
// (S, A, R, S'). Transitions are immutable records: once constructed,
// they are never modified by the replay buffer or learners.
//
// When the transition ends an episode, NextState holds the terminal
// sentinel (the all-zero vector of state dimensionality) and Discount
// is 0 so that bootstrapped targets collapse to the immediate reward.
type Transition struct {
	State     mat.Vector
	Action    mat.Vector
	Reward    float64
	Discount  float64
	NextState mat.Vector
}

// NewTransition constructs the Transition recording that taking action
// in the state observed at step lead to nextStep. The step's
// observation is the transition's state, nextStep's reward is the
// transition's reward.
func NewTransition(step TimeStep, action mat.Vector,
	nextStep TimeStep) Transition {
	nextState := nextStep.Observation
	discount := nextStep.Discount

	if nextStep.Last() {
		nextState = TerminalSentinel(step.Observation.Len())
		discount = 0.0
	}

	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		Discount:  discount,
		NextState: nextState,
	}
}

// Terminal returns whether the Transition ended its episode at a
// terminal environmental state
func (t Transition) Terminal() bool {
	return t.Discount == 0.0
}

// TerminalSentinel returns the designated next-state vector stored for
// terminal transitions: the zero vector with the given number of
// features
func TerminalSentinel(features int) mat.Vector {
	return mat.NewVecDense(features, nil)
}
