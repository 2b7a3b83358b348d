package checkpointer

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ts "github.com/cartlearn/deepcart/timestep"
)

// counter is a minimal Serializable used to test checkpointing
type counter struct {
	Count int
}

func (c *counter) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.Count)
	return buf.Bytes(), err
}

func (c *counter) GobDecode(in []byte) error {
	return gob.NewDecoder(bytes.NewReader(in)).Decode(&c.Count)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "object.bin")

	saved := &counter{Count: 42}
	require.NoError(t, Save(filename, saved))

	restored := &counter{}
	require.NoError(t, Restore(filename, restored))
	require.Equal(t, 42, restored.Count)
}

func TestRestoreMissingFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "missing.bin")
	require.Error(t, Restore(filename, &counter{}))
}

func TestNStepCheckpointsAtInterval(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "object.bin")
	object := &counter{}
	check := NewNStep(10, object, func() string { return filename })

	obs := mat.NewVecDense(1, nil)

	// Steps off the interval must not create a checkpoint
	object.Count = 1
	require.NoError(t, check.Checkpoint(ts.New(ts.Mid, 0, 1, obs, 7)))
	require.Error(t, Restore(filename, &counter{}))

	// Steps on the interval checkpoint the object's current state
	object.Count = 2
	require.NoError(t, check.Checkpoint(ts.New(ts.Mid, 0, 1, obs, 10)))

	restored := &counter{}
	require.NoError(t, Restore(filename, restored))
	require.Equal(t, 2, restored.Count)
}

func TestFilenameEnumerator(t *testing.T) {
	next := FilenameEnumerator(0, "agent", ".bin")
	require.Equal(t, "agent1.bin", next())
	require.Equal(t, "agent2.bin", next())
	require.Equal(t, "agent3.bin", next())
}

func TestFileTimer(t *testing.T) {
	next := FileTimer("agent", ".bin")
	name := next()

	require.True(t, strings.HasPrefix(name, "agent-"))
	require.True(t, strings.HasSuffix(name, ".bin"))

	// The suffix between the base name and extension is a nanosecond
	// timestamp
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "agent-"), ".bin")
	_, err := strconv.ParseInt(stamp, 10, 64)
	require.NoError(t, err)
}

func TestFileTimerNamesUsableByNStep(t *testing.T) {
	// Timestamped names must produce distinct checkpoint files on disk
	dir := t.TempDir()
	object := &counter{Count: 7}
	check := NewNStep(1, object,
		FileTimer(filepath.Join(dir, "agent"), ".bin"))

	obs := mat.NewVecDense(1, nil)
	require.NoError(t, check.Checkpoint(ts.New(ts.Mid, 0, 1, obs, 1)))

	files, err := filepath.Glob(filepath.Join(dir, "agent-*.bin"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	restored := &counter{}
	require.NoError(t, Restore(files[0], restored))
	require.Equal(t, 7, restored.Count)
}
