// Package expreplay implements bounded experience replay buffers
package expreplay

import (
	"fmt"
	"math/rand"

	"github.com/cartlearn/deepcart/timestep"
)

// ExperienceReplayer implements a fixed-capacity experience replay
// buffer. Transitions are evicted first-in-first-out once the buffer
// is at capacity, and batches are sampled uniformly at random without
// replacement.
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest stored
	// transition if the buffer is full
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer and
	// returns the batch as flat []float64 of states, actions, rewards,
	// discounts, and next states
	Sample() ([]float64, []float64, []float64, []float64, []float64, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in the
	// buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// Config describes a configuration of an ExperienceReplayer
type Config struct {
	BatchSize         int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config
func (c Config) Create(featureSize, actionSize int,
	seed int64) (ExperienceReplayer, error) {
	return New(c.MinReplayCapacity, c.MaxReplayCapacity, featureSize,
		actionSize, c.BatchSize, seed)
}

// fifoCache implements a concrete ExperienceReplayer. Data is stored
// in flat caches of maxCapacity * size float64, with the index at
// which a transition is stored chosen by a ring position so that
// insertion beyond capacity always overwrites the oldest stored
// transition.
type fifoCache struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64

	currentInUsePos int
	isFull          bool

	rng *rand.Rand

	batchSize   int
	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New creates and returns a new ExperienceReplayer. The featureSize
// and actionSize parameters define the lengths of the state and
// (one-hot) action vectors of stored transitions. The minCapacity
// parameter determines the number of samples that must be in the
// buffer before sampling is allowed, and maxCapacity determines the
// maximum number of samples allowed in the buffer at any given time.
func New(minCapacity, maxCapacity, featureSize, actionSize, batchSize int,
	seed int64) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batchSize must be >= 1")
	}
	if maxCapacity < batchSize {
		return nil, fmt.Errorf("new: cannot have batch size (%v) > max "+
			"buffer capacity (%v)", batchSize, maxCapacity)
	}

	source := rand.NewSource(seed)

	return &fifoCache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		currentInUsePos: 0,
		isFull:          false,

		rng: rand.New(source),

		batchSize:   batchSize,
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	baseStr := "Capacity: %v/%v \nStates: %v \nActions: %v \nRewards: %v" +
		" \nDiscounts: %v \nNext States: %v"
	return fmt.Sprintf(baseStr, c.Capacity(), c.maxCapacity, c.stateCache,
		c.actionCache, c.rewardCache, c.discountCache, c.nextStateCache)
}

// BatchSize returns the number of samples returned by Sample()
func (c *fifoCache) BatchSize() int {
	return c.batchSize
}

// Capacity returns the current number of elements in the buffer that
// are available for sampling
func (c *fifoCache) Capacity() int {
	if c.isFull {
		return c.maxCapacity
	}
	return c.currentInUsePos
}

// MaxCapacity returns the maximum number of elements allowed in the
// buffer
func (c *fifoCache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// buffer before sampling is allowed
func (c *fifoCache) MinCapacity() int {
	return c.minCapacity
}

// Add adds a transition to the buffer. If the buffer is at capacity,
// the oldest stored transition is evicted so that the buffer size
// never exceeds its maximum capacity. Add never fails on a full
// buffer.
func (c *fifoCache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)"+
			"\n\thave(%v)", c.featureSize, t.State.Len())
	}
	if t.Action.Len() != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)"+
			"\n\thave(%v)", c.actionSize, t.Action.Len())
	}

	index := c.currentInUsePos

	stateInd := index * c.featureSize
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[stateInd+i] = t.State.AtVec(i)
		c.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}

	actionInd := index * c.actionSize
	for i := 0; i < c.actionSize; i++ {
		c.actionCache[actionInd+i] = t.Action.AtVec(i)
	}

	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount

	c.currentInUsePos = (c.currentInUsePos + 1) % c.maxCapacity
	if c.currentInUsePos == 0 {
		c.isFull = true
	}
	return nil
}

// Sample samples and returns a batch of transitions from the buffer.
// The returned values are the states, (one-hot) actions, rewards,
// discounts, and next states. The batch is drawn uniformly at random
// without replacement, so all returned transitions are distinct, and
// the order of the returned batch is unspecified. Sampling does not
// mutate the buffer.
func (c *fifoCache) Sample() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
		return nil, nil, nil, nil, nil, err
	}
	if c.Capacity() < c.minCapacity || c.Capacity() < c.batchSize {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
		return nil, nil, nil, nil, nil, err
	}

	// Uniform sampling without replacement: the first batchSize
	// entries of a permutation of the in-use indices
	indices := c.rng.Perm(c.Capacity())[:c.batchSize]

	stateBatch := make([]float64, c.batchSize*c.featureSize)
	nextStateBatch := make([]float64, c.batchSize*c.featureSize)
	for i, index := range indices {
		batchStartInd := i * c.featureSize
		expStartInd := index * c.featureSize
		copy(stateBatch[batchStartInd:batchStartInd+c.featureSize],
			c.stateCache[expStartInd:expStartInd+c.featureSize],
		)
		copy(nextStateBatch[batchStartInd:batchStartInd+c.featureSize],
			c.nextStateCache[expStartInd:expStartInd+c.featureSize],
		)
	}

	actionBatch := make([]float64, c.batchSize*c.actionSize)
	for i, index := range indices {
		batchStartInd := i * c.actionSize
		expStartInd := index * c.actionSize
		copy(actionBatch[batchStartInd:batchStartInd+c.actionSize],
			c.actionCache[expStartInd:expStartInd+c.actionSize],
		)
	}

	rewardBatch := make([]float64, c.batchSize)
	discountBatch := make([]float64, c.batchSize)
	for i, index := range indices {
		rewardBatch[i] = c.rewardCache[index]
		discountBatch[i] = c.discountCache[index]
	}

	return stateBatch, actionBatch, rewardBatch, discountBatch,
		nextStateBatch, nil
}

// insertOrder returns the indices of the cache in the chronological
// order that data was inserted at them. Used by tests to verify the
// FIFO eviction order.
func (c *fifoCache) insertOrder() []int {
	if !c.isFull {
		order := make([]int, c.currentInUsePos)
		for i := range order {
			order[i] = i
		}
		return order
	}

	order := make([]int, 0, c.maxCapacity)
	for i := c.currentInUsePos; i < c.maxCapacity; i++ {
		order = append(order, i)
	}
	for i := 0; i < c.currentInUsePos; i++ {
		order = append(order, i)
	}
	return order
}
