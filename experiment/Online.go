package experiment

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cartlearn/deepcart/agent"
	env "github.com/cartlearn/deepcart/environment"
	"github.com/cartlearn/deepcart/experiment/checkpointer"
	"github.com/cartlearn/deepcart/experiment/tracker"
	ts "github.com/cartlearn/deepcart/timestep"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed. The experiment is episode-driven: it runs
// for a fixed number of episodes, with each episode bounded by the
// environment's own step limit.
//
// The first action of every episode is selected uniformly at random
// rather than by the agent's policy, so that consecutive episodes do
// not all begin with the same greedy trajectory.
type Online struct {
	env.Environment
	agent.Agent
	episodes       int
	currentEpisode int
	numActions     int
	rng            *rand.Rand
	trackers       []tracker.Tracker
	checkpointers  []checkpointer.Checkpointer
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The episodes parameter determines
// how many episodes the experiment is run for, and the t parameter
// is a slice of tracker.Tracker which determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, episodes int, seed int64,
	t []tracker.Tracker, c []checkpointer.Checkpointer) (*Online, error) {
	if episodes < 1 {
		return nil, fmt.Errorf("newonline: experiments must run a "+
			"positive number of episodes \n\thave(%v)", episodes)
	}

	numActions := int(e.ActionSpec().UpperBound.AtVec(0)) + 1

	return &Online{
		Environment:    e,
		Agent:          a,
		episodes:       episodes,
		currentEpisode: 0,
		numActions:     numActions,
		rng:            rand.New(rand.NewSource(seed)),
		trackers:       t,
		checkpointers:  c,
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment. It returns
// whether the experiment's episode limit has been reached and any
// error that occurred while running the episode.
func (o *Online) RunEpisode() (bool, error) {
	step := o.Environment.Reset()
	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runepisode: %v", err)
	}
	o.track(step)

	// The first action of the episode is randomized
	action := mat.NewVecDense(1, []float64{
		float64(o.rng.Intn(o.numActions)),
	})

	for !step.Last() {
		var err error
		step, _ = o.Environment.Step(action)

		// Cache the environment step in each Tracker
		o.track(step)

		// Observe the timestep and step the agent
		if err = o.Agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runepisode: %v", err)
		}
		if err = o.Agent.Step(); err != nil {
			return false, fmt.Errorf("runepisode: %v", err)
		}
		if err = o.checkpoint(step); err != nil {
			return false, fmt.Errorf("runepisode: %v", err)
		}

		if !step.Last() {
			action = o.Agent.SelectAction(step)
		}
	}
	o.Agent.EndEpisode()

	o.currentEpisode++
	return o.currentEpisode >= o.episodes, nil
}

// Run runs the entire experiment for all episodes
func (o *Online) Run() error {
	ended := false

	for !ended {
		var err error
		ended, err = o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, t := range o.trackers {
		t.Save()
	}
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

// checkpoint saves the state of the experiment's agent with each
// registered Checkpointer
func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return fmt.Errorf("checkpoint: %v", err)
		}
	}
	return nil
}
