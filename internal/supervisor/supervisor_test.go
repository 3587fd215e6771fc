package supervisor

import (
	"context"
	"io"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logmonitor/internal/outputlane"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

func TestWorkload_ForwardsStdoutAndStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exercises a /bin/sh child; not available on windows")
	}

	var sb syncBuffer
	lane := outputlane.New(&sb)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	w := New("/bin/sh", []string{"-c", "echo out-line; echo err-line 1>&2"}, lane, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Wait())

	assert.Contains(t, sb.String(), "out-line")
	assert.Contains(t, sb.String(), "err-line")
}

func TestWorkload_WaitReturnsNonZeroExitError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exercises a /bin/sh child; not available on windows")
	}

	var sb syncBuffer
	lane := outputlane.New(&sb)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	w := New("/bin/sh", []string{"-c", "exit 3"}, lane, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Start(ctx))
	err := w.Wait()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exit status 3"))
}
