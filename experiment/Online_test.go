package experiment

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/cartlearn/deepcart/environment"
	"github.com/cartlearn/deepcart/environment/classiccontrol/cartpole"
	ts "github.com/cartlearn/deepcart/timestep"
)

// mockAgent is a minimal agent.Agent that always pushes the cart left
// and records how it was driven
type mockAgent struct {
	observedFirst int
	observed      int
	steps         int
	episodesEnded int
	eval          bool
}

func (m *mockAgent) ObserveFirst(t ts.TimeStep) error {
	m.observedFirst++
	return nil
}

func (m *mockAgent) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	m.observed++
	return nil
}

func (m *mockAgent) Step() error {
	m.steps++
	return nil
}

func (m *mockAgent) EndEpisode() {
	m.episodesEnded++
}

func (m *mockAgent) SelectAction(t ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{0.0})
}

func (m *mockAgent) Eval()        { m.eval = true }
func (m *mockAgent) Train()       { m.eval = false }
func (m *mockAgent) IsEval() bool { return m.eval }

// newTestEnv returns a Cartpole environment whose episodes last at
// most episodeSteps steps
func newTestEnv(episodeSteps int) env.Environment {
	zero := r1.Interval{Min: 0.0, Max: 0.0}
	starter := env.NewUniformStarter([]r1.Interval{zero, zero, zero, zero},
		19)
	task := cartpole.NewBalance(starter, episodeSteps, cartpole.FailAngle)
	environment, _ := cartpole.New(task, 0.99)
	return environment
}

func TestOnlineRunsRequestedEpisodes(t *testing.T) {
	agent := &mockAgent{}
	experiment, err := NewOnline(newTestEnv(10), agent, 3, 19, nil, nil)
	require.NoError(t, err)

	require.NoError(t, experiment.Run())
	require.Equal(t, 3, agent.observedFirst)
	require.Equal(t, 3, agent.episodesEnded)
}

func TestOnlineStepsAgentEveryTimestep(t *testing.T) {
	agent := &mockAgent{}
	experiment, err := NewOnline(newTestEnv(10), agent, 1, 19, nil, nil)
	require.NoError(t, err)

	finished, err := experiment.RunEpisode()
	require.NoError(t, err)
	require.True(t, finished)

	// The agent observes and learns from every environmental step
	require.Equal(t, agent.observed, agent.steps)
	require.Greater(t, agent.observed, 0)
}

func TestOnlineRejectsNonPositiveEpisodes(t *testing.T) {
	_, err := NewOnline(newTestEnv(10), &mockAgent{}, 0, 19, nil, nil)
	require.Error(t, err)
}
