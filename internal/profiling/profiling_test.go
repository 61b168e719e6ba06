package profiling

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackAccumulatesPerFrame(t *testing.T) {
	ResetFrame()
	start := Frames()

	for i := 0; i < 3; i++ {
		stop := Track("test.section")
		time.Sleep(time.Millisecond)
		stop()
	}
	Track("test.other")()

	ss := Snapshot()
	require.Contains(t, ss, "test.section")
	assert.Equal(t, 3, ss["test.section"].Calls)
	assert.GreaterOrEqual(t, ss["test.section"].Total, 3*time.Millisecond)

	top := TopN(1)
	assert.True(t, strings.HasPrefix(top, "test.section:"), top)
	assert.Contains(t, top, "(x3)")
	assert.Len(t, strings.Split(TopN(10), ", "), 2)

	ResetFrame()
	assert.Empty(t, Snapshot())
	assert.Equal(t, start+1, Frames())
	assert.Equal(t, "", TopN(5))
}
