package outputlane

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NonFileWriterNeverTreatedAsConsole(t *testing.T) {
	var buf bytes.Buffer
	lane := New(&buf)
	assert.False(t, lane.isConsole)
}

func TestWriteLine_AppendsSingleNewline(t *testing.T) {
	var buf bytes.Buffer
	lane := New(&buf)

	require.NoError(t, lane.WriteLine("Hello World!"))
	assert.Equal(t, "Hello World!\n", buf.String())
}

func TestWriteRaw_NoNewlineAppended(t *testing.T) {
	var buf bytes.Buffer
	lane := New(&buf)

	require.NoError(t, lane.WriteRaw([]byte("partial-chunk")))
	assert.Equal(t, "partial-chunk", buf.String())
}

func TestTraceHelpers_CarryLevelPrefix(t *testing.T) {
	var buf bytes.Buffer
	lane := New(&buf)

	lane.TraceError("boom: %d", 42)
	lane.TraceWarning("careful")
	lane.TraceInfo("fyi")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "][LOGMONITOR] ERROR: boom: 42")
	assert.Contains(t, lines[1], "][LOGMONITOR] WARNING: careful")
	assert.Contains(t, lines[2], "][LOGMONITOR] INFO: fyi")
}

// Two concurrent writers must never interleave at sub-line granularity.
func TestWriteLine_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	lane := New(&buf)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = lane.WriteLine("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, n)
	for _, l := range lines {
		assert.Len(t, l, 40)
	}
}
