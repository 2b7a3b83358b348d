// Package deepq implements the deep Q-learning algorithm
package deepq

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/cartlearn/deepcart/agent"
	"github.com/cartlearn/deepcart/agent/policy"
	"github.com/cartlearn/deepcart/environment"
	"github.com/cartlearn/deepcart/expreplay"
	ts "github.com/cartlearn/deepcart/timestep"
	"github.com/cartlearn/deepcart/utils/floatutils"
)

// DeepQ implements the deep Q-learning algorithm. This algorithm is
// conceptually similar to DQN, but uses the MSE loss.
//
// On each learning step, a batch of transitions is sampled uniformly
// without replacement from an experience replay buffer. The
// bootstrapped update target for each sampled transition is
//
//	target = r + γ * max_a Q(s', a)
//
// where Q(s', ·) is estimated by a target network. Terminal
// transitions store γ = 0, so their target is exactly r. The train
// network then takes one gradient step minimizing the mean squared
// error between Q(s, a) and the computed targets.
type DeepQ struct {
	// Action selection policies
	behaviourPolicy   agent.EGreedyNNPolicy // Behaviour egreedy policy
	behaviourPolicyVM G.VM
	targetPolicy      agent.EGreedyNNPolicy // Greedy evaluation policy
	targetPolicyVM    G.VM

	// Network for learning weights that takes in batches of inputs
	trainNet   agent.EGreedyNNPolicy
	trainNetVM G.VM
	solver     G.Solver

	// Network that provides the action values of next states for the
	// update target
	targetNet   agent.EGreedyNNPolicy
	targetNetVM G.VM

	// Variables to track target network updates
	tau                  float64 // Polyak averaging constant
	targetUpdateInterval int     // Gradient steps between target updates
	gradientSteps        int

	// Input nodes in the graph of trainNet: the one-hot actions taken
	// at the sampled states and the bootstrapped update targets
	selectedActions *G.Node
	updateTargets   *G.Node

	numActions int
	batchSize  int

	replay expreplay.ExperienceReplayer

	// Exploration schedule for the behaviour policy
	epsilon    policy.ExponentialDecay
	totalSteps int

	// Previous timestep, needed to construct replay transitions
	prevStep ts.TimeStep

	eval bool // Whether or not in evaluation mode
}

// New creates and returns a new DeepQ agent
func New(env environment.Environment, config Config,
	seed int64) (*DeepQ, error) {
	// Ensure environment has discrete actions
	if env.ActionSpec().Cardinality != environment.Discrete {
		return &DeepQ{}, fmt.Errorf("deepq: cannot use non-discrete actions")
	}

	// Ensure actions are one-dimensional
	if env.ActionSpec().LowerBound.Len() > 1 {
		return &DeepQ{}, fmt.Errorf("deepq: actions must be 1-dimensional")
	}

	// Ensure actions are enumerated from 0
	if env.ActionSpec().LowerBound.AtVec(0) != 0.0 {
		return &DeepQ{}, fmt.Errorf("deepq: actions must be enumerated " +
			"starting from 0")
	}

	err := config.Validate()
	if err != nil {
		return &DeepQ{}, err
	}

	batchSize := config.BatchSize()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1
	numFeatures := env.ObservationSpec().Shape.Len()

	// Behaviour network for selecting actions. The epsilon of the
	// behaviour policy is adjusted on every step by the exploration
	// schedule, starting at its maximum.
	g := G.NewGraph()
	behaviourPolicy, err := policy.NewMultiHeadEGreedyMLP(
		config.Epsilon.Value(0),
		env,
		1, // For the behaviour policy, only a single action is selected
		g,
		config.PolicyLayers,
		config.Biases,
		config.InitWFn.InitWFn(),
		config.Activations,
		seed,
	)
	if err != nil {
		return &DeepQ{}, err
	}
	behaviourPolicyVM := G.NewTapeMachine(g)

	// Create the greedy target policy for evaluation mode
	targetPolicyClone, err := behaviourPolicy.Clone()
	if err != nil {
		return &DeepQ{}, fmt.Errorf("deepq: could not create target policy")
	}
	targetPolicy := targetPolicyClone.(agent.EGreedyNNPolicy)
	targetPolicy.SetEpsilon(0.0)
	targetPolicyVM := G.NewTapeMachine(targetPolicy.Network().Graph())

	// Create the target network which provides the action values of
	// next states for the update target
	targetNetClone, err := behaviourPolicy.CloneWithBatch(batchSize)
	if err != nil {
		return &DeepQ{}, fmt.Errorf("deepq: could not create target "+
			"network: %v", err)
	}
	targetNet := targetNetClone.(agent.EGreedyNNPolicy)
	targetNet.SetEpsilon(0.0) // Q-learning bootstraps off the greedy action
	targetNetVM := G.NewTapeMachine(targetNet.Network().Graph())

	// Create the training network which learns the weights
	trainNetClone, err := behaviourPolicy.CloneWithBatch(batchSize)
	if err != nil {
		return &DeepQ{}, fmt.Errorf("deepq: could not create learning "+
			"network: %v", err)
	}
	trainNet := trainNetClone.(agent.EGreedyNNPolicy)
	gTrain := trainNet.Network().Graph()

	// The one-hot actions selected at the sampled states. The network
	// outputs numActions action values per state, and the loss is
	// computed using only the value of the selected action.
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("selectedActions"),
		G.WithShape(batchSize, numActions),
	)

	// The bootstrapped update targets, computed outside the graph
	updateTargets := G.NewVector(
		gTrain,
		tensor.Float64,
		G.WithName("updateTargets"),
		G.WithShape(batchSize),
	)

	selectedActionsValue := G.Must(G.HadamardProd(
		trainNet.Network().Prediction(), selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Mean squared TD error
	losses := G.Must(G.Sub(updateTargets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	_, err = G.Grad(cost, trainNet.Network().Learnables()...)
	if err != nil {
		return &DeepQ{}, fmt.Errorf("deepq: could not compute gradient: %v",
			err)
	}

	trainNetVM := G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Network().Learnables()...),
	)

	// Create the experience replay buffer. The buffer stores selected
	// actions as one-hot vectors.
	replay, err := config.ExpReplay.Create(numFeatures, numActions,
		seed)
	if err != nil {
		return &DeepQ{}, fmt.Errorf("deepq: could not create experience "+
			"replay buffer: %v", err)
	}

	return &DeepQ{
		behaviourPolicy:      behaviourPolicy,
		behaviourPolicyVM:    behaviourPolicyVM,
		targetPolicy:         targetPolicy,
		targetPolicyVM:       targetPolicyVM,
		trainNet:             trainNet,
		trainNetVM:           trainNetVM,
		solver:               config.Solver,
		targetNet:            targetNet,
		targetNetVM:          targetNetVM,
		tau:                  config.Tau,
		targetUpdateInterval: config.TargetUpdateInterval,
		gradientSteps:        0,
		selectedActions:      selectedActions,
		updateTargets:        updateTargets,
		numActions:           numActions,
		batchSize:            batchSize,
		replay:               replay,
		epsilon:              config.Epsilon,
		totalSteps:           0,
		prevStep:             ts.TimeStep{},
		eval:                 false,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DeepQ) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}
	d.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep, constructing the transition that the action lead to and
// adding it to the replay buffer
func (d *DeepQ) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: value-based methods do not support "+
			"multi-dimensional actions (action dim = %d)", action.Len())
	}

	// Store selected actions as one-hot vectors
	oneHotAction := mat.NewVecDense(d.numActions, nil)
	oneHotAction.SetVec(int(action.AtVec(0)), 1.0)

	transition := ts.NewTransition(d.prevStep, oneHotAction, nextStep)
	err := d.replay.Add(transition)
	if err != nil {
		return fmt.Errorf("observe: could not add to replay buffer: %v",
			err)
	}

	d.prevStep = nextStep
	return nil
}

// Step updates the weights of the Agent's Policies
func (d *DeepQ) Step() error {
	// Don't update until the replay buffer has sufficient samples
	S, A, R, discount, NextS, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("step: could not sample replay buffer: %v", err)
	}

	// Predict the action values of the next states NextS
	err = d.targetNet.Network().SetInput(NextS)
	if err != nil {
		return fmt.Errorf("step: could not set target network input: %v",
			err)
	}
	err = d.targetNetVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run target network: %v", err)
	}
	nextActionValues := d.targetNet.Network().Output().Data().([]float64)
	targets := bootstrapTargets(R, discount, nextActionValues, d.numActions)
	d.targetNetVM.Reset()

	// Set the one-hot actions selected at the sampled states
	prevActions := tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(A),
	)
	err = G.Let(d.selectedActions, prevActions)
	if err != nil {
		return fmt.Errorf("step: could not set selected actions: %v", err)
	}

	// Set the update targets
	targetTensor := tensor.New(
		tensor.WithShape(d.batchSize),
		tensor.WithBacking(targets),
	)
	err = G.Let(d.updateTargets, targetTensor)
	if err != nil {
		return fmt.Errorf("step: could not set update targets: %v", err)
	}

	// Predict the action values of the sampled states S and run the
	// learning step
	err = d.trainNet.Network().SetInput(S)
	if err != nil {
		return fmt.Errorf("step: could not set train network input: %v",
			err)
	}
	err = d.trainNetVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run learning step: %v", err)
	}
	err = d.solver.Step(d.trainNet.Network().Model())
	if err != nil {
		return fmt.Errorf("step: could not run solver: %v", err)
	}
	d.trainNetVM.Reset()
	d.gradientSteps++

	// Update the target network by setting its weights to the newly
	// learned weights
	if d.gradientSteps%d.targetUpdateInterval == 0 {
		if d.tau == 1.0 {
			err = d.targetNet.Network().Set(d.trainNet.Network())
		} else {
			err = d.targetNet.Network().Polyak(d.trainNet.Network(), d.tau)
		}
		if err != nil {
			return fmt.Errorf("step: could not update target network: %v",
				err)
		}
	}

	err = d.targetPolicy.Network().Set(d.trainNet.Network())
	if err != nil {
		return fmt.Errorf("step: could not update target policy: %v", err)
	}
	err = d.behaviourPolicy.Network().Set(d.trainNet.Network())
	if err != nil {
		return fmt.Errorf("step: could not update behaviour policy: %v",
			err)
	}
	return nil
}

// bootstrapTargets computes the update target for each transition in a
// sampled batch. The nextActionValues argument holds numActions
// predicted action values per transition, in row major order. For
// transition i with reward r and discount γ:
//
//	target[i] = r + γ * max(nextActionValues[i])
//
// Terminal transitions store γ = 0, so their target is exactly r.
func bootstrapTargets(rewards, discounts, nextActionValues []float64,
	numActions int) []float64 {
	targets := make([]float64, len(rewards))
	for i := range targets {
		maxValue := floatutils.Max(
			nextActionValues[i*numActions : (i+1)*numActions]...)
		targets[i] = rewards[i] + discounts[i]*maxValue
	}
	return targets
}

// SelectAction runs the necessary VMs and then returns an action
// selected by the behaviour policy, or by the greedy target policy in
// evaluation mode. In training mode, the exploration probability of
// the behaviour policy is first updated from the agent's exploration
// schedule.
func (d *DeepQ) SelectAction(t ts.TimeStep) *mat.VecDense {
	var selectionPolicy agent.NNPolicy
	var vm G.VM

	if d.eval {
		selectionPolicy = d.targetPolicy
		vm = d.targetPolicyVM
	} else {
		d.behaviourPolicy.SetEpsilon(d.epsilon.Value(d.totalSteps))
		d.totalSteps++

		selectionPolicy = d.behaviourPolicy
		vm = d.behaviourPolicyVM
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	err := selectionPolicy.Network().SetInput(obs)
	if err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}

	if err := vm.RunAll(); err != nil {
		panic(fmt.Sprintf("selectaction: could not run policy: %v", err))
	}

	action, _ := selectionPolicy.SelectAction()

	vm.Reset()
	return action
}

// Epsilon returns the exploration probability that the behaviour
// policy last selected an action with
func (d *DeepQ) Epsilon() float64 {
	return d.behaviourPolicy.Epsilon()
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DeepQ) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// EndEpisode performs cleanup at the end of an episode
func (d *DeepQ) EndEpisode() {}

// GobEncode implements the gob.GobEncoder interface so that the
// agent's learned weights can be checkpointed
func (d *DeepQ) GobEncode() ([]byte, error) {
	serializablePolicy, ok := d.behaviourPolicy.(gob.GobEncoder)
	if !ok {
		return nil, fmt.Errorf("gobencode: behaviour policy not " +
			"serializable")
	}

	policyBytes, err := serializablePolicy.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode behaviour "+
			"policy: %v", err)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(d.totalSteps); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode step count")
	}
	if err := enc.Encode(d.gradientSteps); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode gradient steps")
	}
	if err := enc.Encode(policyBytes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode policy")
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The weights of
// all the agent's policies and networks are restored from the decoded
// checkpoint.
func (d *DeepQ) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	if err := dec.Decode(&d.totalSteps); err != nil {
		return fmt.Errorf("gobdecode: could not decode step count")
	}
	if err := dec.Decode(&d.gradientSteps); err != nil {
		return fmt.Errorf("gobdecode: could not decode gradient steps")
	}

	var policyBytes []byte
	if err := dec.Decode(&policyBytes); err != nil {
		return fmt.Errorf("gobdecode: could not decode policy")
	}

	serializablePolicy, ok := d.behaviourPolicy.(gob.GobDecoder)
	if !ok {
		return fmt.Errorf("gobdecode: behaviour policy not serializable")
	}
	if err := serializablePolicy.GobDecode(policyBytes); err != nil {
		return fmt.Errorf("gobdecode: could not decode behaviour policy: "+
			"%v", err)
	}

	// Restore the remaining networks from the decoded weights
	net := d.behaviourPolicy.Network()
	if err := d.targetPolicy.Network().Set(net); err != nil {
		return fmt.Errorf("gobdecode: could not restore target policy: %v",
			err)
	}
	if err := d.trainNet.Network().Set(net); err != nil {
		return fmt.Errorf("gobdecode: could not restore train network: %v",
			err)
	}
	if err := d.targetNet.Network().Set(net); err != nil {
		return fmt.Errorf("gobdecode: could not restore target network: %v",
			err)
	}

	return nil
}
