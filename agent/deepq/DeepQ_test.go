package deepq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartlearn/deepcart/agent/policy"
	"github.com/cartlearn/deepcart/expreplay"
	"github.com/cartlearn/deepcart/initwfn"
	"github.com/cartlearn/deepcart/network"
	"github.com/cartlearn/deepcart/solver"
)

// validConfig returns a Config that passes validation
func validConfig(t *testing.T) Config {
	t.Helper()

	adam, err := solver.NewDefaultAdam(0.001, 4)
	require.NoError(t, err)
	init, err := initwfn.NewGlorotU(1.0)
	require.NoError(t, err)
	epsilon, err := policy.NewExponentialDecay(0.01, 1.0, 0.001)
	require.NoError(t, err)

	return Config{
		PolicyLayers: []int{16, 16},
		Biases:       []bool{true, true},
		Activations: []*network.Activation{
			network.ReLU(),
			network.ReLU(),
		},
		Solver:  adam,
		InitWFn: init,
		Epsilon: epsilon,
		ExpReplay: expreplay.Config{
			BatchSize:         4,
			MaxReplayCapacity: 100,
			MinReplayCapacity: 4,
		},
		Tau:                  1.0,
		TargetUpdateInterval: 10,
	}
}

func TestBootstrapTargetsNonTerminal(t *testing.T) {
	// Two transitions with 3 actions each. The target bootstraps off
	// the maximal next action value.
	rewards := []float64{1.0, -1.0}
	discounts := []float64{0.9, 0.5}
	nextActionValues := []float64{
		2.0, 5.0, 3.0, // Transition 0: max is 5.0
		-1.0, -2.0, -3.0, // Transition 1: max is -1.0
	}

	targets := bootstrapTargets(rewards, discounts, nextActionValues, 3)

	require.InDelta(t, 1.0+0.9*5.0, targets[0], 1e-12)
	require.InDelta(t, -1.0+0.5*-1.0, targets[1], 1e-12)
}

func TestBootstrapTargetsTerminal(t *testing.T) {
	// Terminal transitions store a discount of 0, so the target is
	// exactly the reward no matter the predicted next action values
	rewards := []float64{-1.0}
	discounts := []float64{0.0}
	nextActionValues := []float64{100.0, 200.0}

	targets := bootstrapTargets(rewards, discounts, nextActionValues, 2)

	require.Equal(t, -1.0, targets[0])
}

func TestBootstrapTargetsMixedBatch(t *testing.T) {
	rewards := []float64{1.0, 1.0, -1.0}
	discounts := []float64{0.99, 0.99, 0.0}
	nextActionValues := []float64{
		0.5, 0.25,
		-0.5, 0.75,
		10.0, 20.0,
	}

	targets := bootstrapTargets(rewards, discounts, nextActionValues, 2)

	require.Len(t, targets, 3)
	require.InDelta(t, 1.0+0.99*0.5, targets[0], 1e-12)
	require.InDelta(t, 1.0+0.99*0.75, targets[1], 1e-12)
	require.Equal(t, -1.0, targets[2])
}

func TestConfigValidate(t *testing.T) {
	valid := validConfig(t)
	require.NoError(t, valid.Validate())

	mismatchedBiases := validConfig(t)
	mismatchedBiases.Biases = []bool{true}
	require.Error(t, mismatchedBiases.Validate())

	mismatchedActivations := validConfig(t)
	mismatchedActivations.Activations = mismatchedActivations.Activations[:1]
	require.Error(t, mismatchedActivations.Validate())

	badInterval := validConfig(t)
	badInterval.TargetUpdateInterval = 0
	require.Error(t, badInterval.Validate())

	badTau := validConfig(t)
	badTau.Tau = 0.0
	require.Error(t, badTau.Validate())

	noSolver := validConfig(t)
	noSolver.Solver = nil
	require.Error(t, noSolver.Validate())

	noInit := validConfig(t)
	noInit.InitWFn = nil
	require.Error(t, noInit.Validate())
}
