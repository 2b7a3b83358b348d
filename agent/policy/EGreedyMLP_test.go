package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r1"
	G "gorgonia.org/gorgonia"

	"github.com/cartlearn/deepcart/agent"
	env "github.com/cartlearn/deepcart/environment"
	"github.com/cartlearn/deepcart/environment/classiccontrol/cartpole"
	"github.com/cartlearn/deepcart/network"
	"github.com/cartlearn/deepcart/utils/floatutils"
)

// newTestPolicy returns a small policy on a cartpole environment,
// together with a VM for its graph
func newTestPolicy(t *testing.T, epsilon float64,
	seed int64) (agent.EGreedyNNPolicy, G.VM) {
	t.Helper()

	zero := r1.Interval{Min: 0.0, Max: 0.0}
	starter := env.NewUniformStarter([]r1.Interval{zero, zero, zero, zero},
		19)
	task := cartpole.NewBalance(starter, 500, cartpole.FailAngle)
	environment, _ := cartpole.New(task, 0.99)

	g := G.NewGraph()
	p, err := NewMultiHeadEGreedyMLP(
		epsilon,
		environment,
		1,
		g,
		[]int{5},
		[]bool{true},
		G.GlorotU(1.0),
		[]*network.Activation{network.ReLU()},
		seed,
	)
	require.NoError(t, err)

	return p, G.NewTapeMachine(g)
}

func TestSelectActionGreedyReturnsArgMax(t *testing.T) {
	p, vm := newTestPolicy(t, 0.0, 19)

	obs := []float64{0.01, -0.02, 0.03, -0.04}
	require.NoError(t, p.Network().SetInput(obs))
	require.NoError(t, vm.RunAll())

	action, value := p.SelectAction()
	vm.Reset()

	// With epsilon 0 the policy is greedy with respect to the last
	// predicted action values, ties broken by the first maximal index
	actionValues := p.Network().Output().Data().([]float64)
	greedy := floatutils.ArgMax(actionValues)

	require.Equal(t, float64(greedy), action.AtVec(0))
	require.Equal(t, actionValues[greedy], value)
}

func TestSelectActionExploresAllActions(t *testing.T) {
	p, vm := newTestPolicy(t, 1.0, 19)

	obs := []float64{0.01, -0.02, 0.03, -0.04}
	require.NoError(t, p.Network().SetInput(obs))
	require.NoError(t, vm.RunAll())
	defer vm.Reset()

	// With epsilon 1 every selection is uniformly random over the
	// action set
	counts := make(map[int]int)
	for i := 0; i < 100; i++ {
		action, _ := p.SelectAction()
		index := int(action.AtVec(0))

		require.GreaterOrEqual(t, index, 0)
		require.Less(t, index, p.Network().Outputs())
		counts[index]++
	}
	require.Len(t, counts, p.Network().Outputs())
}

func TestSelectActionPanicsBeforeVMRun(t *testing.T) {
	p, _ := newTestPolicy(t, 0.0, 19)

	require.Panics(t, func() { p.SelectAction() })
}

func TestSetEpsilon(t *testing.T) {
	p, _ := newTestPolicy(t, 0.25, 19)
	require.Equal(t, 0.25, p.Epsilon())

	p.SetEpsilon(0.75)
	require.Equal(t, 0.75, p.Epsilon())
}
