package floatutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgMax(t *testing.T) {
	require.Equal(t, 2, ArgMax([]float64{1.0, 2.0, 3.0}))
	require.Equal(t, 0, ArgMax([]float64{5.0, -1.0, 3.0}))
}

func TestArgMaxFirstIndexTieBreak(t *testing.T) {
	// Ties are broken by the first encountered maximal index
	require.Equal(t, 0, ArgMax([]float64{3.0, 3.0, 3.0}))
	require.Equal(t, 1, ArgMax([]float64{1.0, 4.0, 4.0}))
}

func TestClip(t *testing.T) {
	require.Equal(t, 1.0, Clip(5.0, -1.0, 1.0))
	require.Equal(t, -1.0, Clip(-5.0, -1.0, 1.0))
	require.Equal(t, 0.5, Clip(0.5, -1.0, 1.0))
}

func TestMax(t *testing.T) {
	require.Equal(t, 3.0, Max(1.0, 3.0, 2.0))
	require.Equal(t, -1.0, Max(-1.0, -3.0, -2.0))
}
