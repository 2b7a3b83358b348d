package deepq

import (
	"fmt"

	"github.com/cartlearn/deepcart/agent/policy"
	"github.com/cartlearn/deepcart/expreplay"
	"github.com/cartlearn/deepcart/initwfn"
	"github.com/cartlearn/deepcart/network"
	"github.com/cartlearn/deepcart/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	PolicyLayers []int                 // Layer sizes in neural net
	Biases       []bool                // Whether each layer has a bias
	Activations  []*network.Activation // Activation of each layer
	Solver       *solver.Solver        // Adapts the network weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Exploration schedule of the behaviour policy
	Epsilon policy.ExponentialDecay

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Target net updates
	Tau                  float64 // Polyak averaging constant
	TargetUpdateInterval int     // Gradient steps between target updates
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.BatchSize
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.Biases) {
		return fmt.Errorf("config: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.PolicyLayers), len(c.Biases))
	}

	if len(c.PolicyLayers) != len(c.Activations) {
		return fmt.Errorf("config: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyLayers),
			len(c.Activations))
	}

	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("config: target networks must be updated at "+
			"positive timestep intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("config: Polyak averaging constant must be in "+
			"(0, 1] \n\thave(%v)", c.Tau)
	}

	if c.Solver == nil {
		return fmt.Errorf("config: no solver provided")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("config: no weight initializer provided")
	}

	return nil
}
