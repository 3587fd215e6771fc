// Package supervisor launches the single child workload process a
// container-log-monitor process runs as PID 1 for, and forwards its stdout
// and stderr into the shared output lane verbatim.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"logmonitor/internal/outputlane"
)

// Workload owns the single child process and the two goroutines copying
// its stdout/stderr into the lane.
type Workload struct {
	command string
	args    []string

	lane   *outputlane.Lane
	logger *logrus.Logger

	cmd *exec.Cmd
	wg  sync.WaitGroup
}

// New builds a Workload that will run command with args when Start is
// called.
func New(command string, args []string, lane *outputlane.Lane, logger *logrus.Logger) *Workload {
	return &Workload{command: command, args: args, lane: lane, logger: logger}
}

// Start launches the child process, attaching its stdout/stderr to pipes
// forwarded into the lane via WriteRaw. The child's exit is observed by
// Wait, not by Start: Start returns once the pumps are listening, Wait
// blocks for termination.
func (w *Workload) Start(ctx context.Context) error {
	w.cmd = exec.CommandContext(ctx, w.command, w.args...)

	stdout, err := w.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	stderr, err := w.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("supervisor: stderr pipe: %w", err)
	}

	if err := w.cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: starting %s: %w", w.command, err)
	}

	w.wg.Add(2)
	go w.pump(stdout)
	go w.pump(stderr)

	return nil
}

// pump copies r into the lane a read-buffer's worth at a time, rather than
// line-buffering, since the child's own output may not be line-delimited
// and only byte-for-byte passthrough is required.
func (w *Workload) pump(r io.Reader) {
	defer w.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := w.lane.WriteRaw(buf[:n]); werr != nil {
				w.logger.WithError(werr).Error("supervisor: failed writing child output to the output lane")
			}
		}
		if err != nil {
			if err != io.EOF {
				w.logger.WithError(err).Warn("supervisor: child output stream closed with an error")
			}
			return
		}
	}
}

// Wait blocks until the child process exits and both pump goroutines have
// drained, returning the child's exit error, if any.
func (w *Workload) Wait() error {
	w.wg.Wait()
	return w.cmd.Wait()
}
