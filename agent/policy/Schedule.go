package policy

import (
	"fmt"
	"math"
)

// ExponentialDecay implements an exponentially decaying exploration
// schedule:
//
//	p(step) = Min + (Max - Min) * exp(-Rate * step)
//
// The schedule is a pure function of the global step count and the
// three constants: it is monotonically non-increasing in step, equals
// Max at step 0, and approaches Min as step grows without bound.
type ExponentialDecay struct {
	Min  float64
	Max  float64
	Rate float64
}

// NewExponentialDecay returns a new ExponentialDecay schedule
func NewExponentialDecay(min, max, rate float64) (ExponentialDecay, error) {
	if min < 0 || max > 1 || min > max {
		return ExponentialDecay{}, fmt.Errorf("newexponentialdecay: "+
			"bounds must satisfy 0 <= min <= max <= 1 \n\thave min(%v) "+
			"max(%v)", min, max)
	}
	if rate < 0 {
		return ExponentialDecay{}, fmt.Errorf("newexponentialdecay: decay "+
			"rate must be non-negative \n\thave(%v)", rate)
	}

	return ExponentialDecay{Min: min, Max: max, Rate: rate}, nil
}

// Value returns the exploration probability at the argument step count
func (e ExponentialDecay) Value(step int) float64 {
	return e.Min + (e.Max-e.Min)*math.Exp(-e.Rate*float64(step))
}
