package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExponentialDecayStartsAtMax(t *testing.T) {
	schedule, err := NewExponentialDecay(0.01, 1.0, 0.001)
	require.NoError(t, err)
	require.Equal(t, 1.0, schedule.Value(0))
}

func TestExponentialDecayMonotone(t *testing.T) {
	schedule, err := NewExponentialDecay(0.01, 1.0, 0.001)
	require.NoError(t, err)

	prev := schedule.Value(0)
	for step := 1; step < 10000; step++ {
		current := schedule.Value(step)
		require.LessOrEqual(t, current, prev)
		prev = current
	}
}

func TestExponentialDecayApproachesMin(t *testing.T) {
	schedule, err := NewExponentialDecay(0.01, 1.0, 0.001)
	require.NoError(t, err)

	value := schedule.Value(100000)
	require.GreaterOrEqual(t, value, schedule.Min)
	require.InDelta(t, schedule.Min, value, 1e-6)
}

func TestExponentialDecayBounded(t *testing.T) {
	schedule, err := NewExponentialDecay(0.05, 0.9, 0.01)
	require.NoError(t, err)

	for step := 0; step < 5000; step += 7 {
		value := schedule.Value(step)
		require.GreaterOrEqual(t, value, schedule.Min)
		require.LessOrEqual(t, value, schedule.Max)
	}
}

func TestExponentialDecayZeroRateIsConstant(t *testing.T) {
	schedule, err := NewExponentialDecay(0.1, 0.5, 0.0)
	require.NoError(t, err)

	for step := 0; step < 100; step++ {
		require.Equal(t, 0.5, schedule.Value(step))
	}
}

func TestNewExponentialDecayInvalidBounds(t *testing.T) {
	_, err := NewExponentialDecay(-0.1, 1.0, 0.001)
	require.Error(t, err)

	_, err = NewExponentialDecay(0.1, 1.1, 0.001)
	require.Error(t, err)

	_, err = NewExponentialDecay(0.5, 0.1, 0.001)
	require.Error(t, err)

	_, err = NewExponentialDecay(0.1, 1.0, -0.5)
	require.Error(t, err)
}
