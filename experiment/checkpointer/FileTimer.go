package checkpointer

import (
	"fmt"
	"time"
)

// FileTimer returns a naming function for checkpoint files. Each call
// to the returned function produces the base filename suffixed with
// the current Unix time in nanoseconds, so successive checkpoints do
// not overwrite one another.
func FileTimer(filename, extension string) func() string {
	return func() string {
		now := time.Now().UnixNano()
		return fmt.Sprintf("%v-%v%v", filename, now, extension)
	}
}
