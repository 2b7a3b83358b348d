package main

import (
	"fmt"
	"log"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/cartlearn/deepcart/agent/deepq"
	"github.com/cartlearn/deepcart/agent/policy"
	"github.com/cartlearn/deepcart/environment"
	"github.com/cartlearn/deepcart/environment/classiccontrol/cartpole"
	"github.com/cartlearn/deepcart/experiment"
	"github.com/cartlearn/deepcart/experiment/checkpointer"
	"github.com/cartlearn/deepcart/experiment/tracker"
	"github.com/cartlearn/deepcart/expreplay"
	"github.com/cartlearn/deepcart/initwfn"
	"github.com/cartlearn/deepcart/network"
	"github.com/cartlearn/deepcart/plot"
	"github.com/cartlearn/deepcart/solver"
	"github.com/cartlearn/deepcart/utils/progressbar"
)

const (
	episodes     = 500
	episodeSteps = 500
	dataFile     = "./returns.bin"
	chartFile    = "./charts/returns.html"
	agentFile    = "./agent.bin"
)

func main() {
	var seed int64 = 192382

	// Create the environment. Episodes start with all state features
	// drawn uniformly from a small interval around 0.
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := environment.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, uint64(seed))
	task := cartpole.NewBalance(starter, episodeSteps, cartpole.FailAngle)
	env, _ := cartpole.New(task, 0.99)

	// Exploration schedule of the behaviour policy
	epsilon, err := policy.NewExponentialDecay(0.01, 1.0, 0.001)
	if err != nil {
		log.Fatalf("could not create exploration schedule: %v", err)
	}

	adam, err := solver.NewDefaultAdam(0.001, 32)
	if err != nil {
		log.Fatalf("could not create solver: %v", err)
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		log.Fatalf("could not create weight initializer: %v", err)
	}

	config := deepq.Config{
		PolicyLayers: []int{64, 64},
		Biases:       []bool{true, true},
		Activations: []*network.Activation{
			network.ReLU(),
			network.ReLU(),
		},
		Solver:  adam,
		InitWFn: init,
		Epsilon: epsilon,
		ExpReplay: expreplay.Config{
			BatchSize:         32,
			MaxReplayCapacity: 10000,
			MinReplayCapacity: 100,
		},
		Tau:                  1.0,
		TargetUpdateInterval: 100,
	}

	agent, err := deepq.New(env, config, seed)
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}

	// Experiment. Periodic checkpoints get timestamped names so they
	// never overwrite one another; the final weights go to agentFile.
	returns := tracker.NewReturn(dataFile)
	check := checkpointer.NewNStep(10000, agent,
		checkpointer.FileTimer("./agent-checkpoint", ".bin"))
	exp, err := experiment.NewOnline(env, agent, episodes, seed,
		[]tracker.Tracker{returns}, []checkpointer.Checkpointer{check})
	if err != nil {
		log.Fatalf("could not create experiment: %v", err)
	}

	bar := progressbar.New(50, episodes)
	bar.Display()
	for finished := false; !finished; {
		finished, err = exp.RunEpisode()
		if err != nil {
			log.Fatalf("experiment failed: %v", err)
		}
		bar.Increment()
		bar.Display()
	}
	fmt.Println()
	exp.Save()

	// Save the final agent weights
	if err := checkpointer.Save(agentFile, agent); err != nil {
		log.Fatalf("could not save agent: %v", err)
	}

	data, err := tracker.LoadData(dataFile)
	if err != nil {
		log.Fatalf("could not load return data: %v", err)
	}

	last := data
	if len(last) > 10 {
		last = last[len(last)-10:]
	}
	fmt.Println(aurora.Bold(aurora.Green("Training complete")))
	fmt.Printf("%v %v\n", aurora.Cyan("Episodes run:"), len(data))
	fmt.Printf("%v %v\n", aurora.Cyan("Final returns:"), last)

	err = plot.EpisodeReturns(chartFile, "Cartpole Episodic Return",
		map[string][]float64{"DeepQ": data})
	if err != nil {
		log.Fatalf("could not plot returns: %v", err)
	}
	fmt.Printf("%v %v\n", aurora.Cyan("Return chart:"), chartFile)

	// Restore the saved weights and run one greedy evaluation episode
	if err := checkpointer.Restore(agentFile, agent); err != nil {
		log.Fatalf("could not restore agent: %v", err)
	}
	agent.Eval()

	evalReturn := 0.0
	step := env.Reset()
	for !step.Last() {
		action := agent.SelectAction(step)
		step, _ = env.Step(action)
		evalReturn += step.Reward
	}
	fmt.Printf("%v %v\n", aurora.Cyan("Evaluation return:"), evalReturn)
}
