package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ts "github.com/cartlearn/deepcart/timestep"
)

// trackEpisode tracks a synthetic episode with the argument per-step
// rewards on the argument Tracker
func trackEpisode(t Tracker, rewards []float64) {
	obs := mat.NewVecDense(1, nil)

	first := ts.New(ts.First, 0.0, 0.99, obs, 0)
	t.Track(first)

	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		step := ts.New(stepType, r, 0.99, obs, i+1)
		t.Track(step)
	}
}

func TestReturnAccumulatesEpisodes(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	returns := NewReturn(filename).(*Return)

	trackEpisode(returns, []float64{1.0, 1.0, 1.0})
	trackEpisode(returns, []float64{1.0, -1.0})

	require.Equal(t, []float64{3.0, 0.0}, returns.Returns())
}

func TestReturnIgnoresUnfinishedEpisode(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	returns := NewReturn(filename).(*Return)

	trackEpisode(returns, []float64{1.0, 1.0})

	// A second episode that never ends contributes no return
	obs := mat.NewVecDense(1, nil)
	returns.Track(ts.New(ts.First, 0.0, 0.99, obs, 0))
	returns.Track(ts.New(ts.Mid, 1.0, 0.99, obs, 1))

	require.Equal(t, []float64{2.0}, returns.Returns())
}

func TestReturnPanicsOnNonSequentialSteps(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	returns := NewReturn(filename)

	obs := mat.NewVecDense(1, nil)
	returns.Track(ts.New(ts.First, 0.0, 0.99, obs, 0))

	require.Panics(t, func() {
		returns.Track(ts.New(ts.Mid, 1.0, 0.99, obs, 5))
	})
}

func TestReturnSaveLoadRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	returns := NewReturn(filename)

	trackEpisode(returns, []float64{1.0, 1.0, 1.0, -1.0})
	trackEpisode(returns, []float64{1.0})
	returns.Save()

	data, err := LoadData(filename)
	require.NoError(t, err)
	require.Equal(t, []float64{2.0, 1.0}, data)
}

func TestEpisodeLengthTracksLastSteps(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	lengths := NewEpisodeLength(filename).(*EpisodeLength)

	trackEpisode(lengths, []float64{1.0, 1.0, 1.0})
	trackEpisode(lengths, []float64{1.0})

	require.Equal(t, []int{3, 1}, lengths.Lengths())
}
