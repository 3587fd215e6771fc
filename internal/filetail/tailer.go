// Package filetail implements the file-log tailer: watches a directory tree
// for new, modified, renamed and removed files matching a glob, tails each
// match across rotations by file identity, auto-detects per-file encoding,
// reassembles partial lines, and emits line-delimited records onto the
// shared output lane.
package filetail

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"logmonitor/internal/fileid"
	"logmonitor/internal/outputlane"
	"logmonitor/internal/xerrors"
)

// waitInterval is the retry cadence while a configured directory has not
// yet appeared.
const waitInterval = 15 * time.Second

// sweepInterval is Thread W's periodic safety-net tick that re-reads every
// known file regardless of notifications received.
const sweepInterval = 30 * time.Second

// Config holds a single file source's constructor inputs.
type Config struct {
	Directory      string
	Filter         string        // glob, default "*"
	IncludeSubdirs bool
	StartupWait    time.Duration // "finite or infinite" wait; <0 means infinite
	Multiline      bool
	SourceID       string // labels this tailer's metrics series
}

func (c Config) filter() string {
	if c.Filter == "" {
		return "*"
	}
	return c.Filter
}

// Tailer is one file-source follower: directory monitor thread (M) +
// worker thread (W).
type Tailer struct {
	cfg    Config
	lane   *outputlane.Lane
	logger *logrus.Logger

	index  *fileid.Index
	events chan DirEvent

	watcher *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Tailer. It fails with ConfigurationError if asked to
// recurse into a root volume. The directory wait, and its StartupTimeout,
// happen in Start. Once Start has succeeded, per-file read errors are
// logged and skipped rather than returned.
func New(cfg Config, lane *outputlane.Lane, logger *logrus.Logger) (*Tailer, error) {
	if cfg.IncludeSubdirs && isRootVolume(cfg.Directory) {
		return nil, xerrors.NewConfigurationError("filetail", fmt.Sprintf("cannot recurse into root volume %q", cfg.Directory))
	}

	t := &Tailer{
		cfg:    cfg,
		lane:   lane,
		logger: logger,
		index:  fileid.New(),
		events: make(chan DirEvent, 1024),
	}
	return t, nil
}

// isRootVolume reports whether dir names a filesystem root (e.g. "C:\\" or
// "/"); recursing into one risks scanning an entire volume when subdirectory
// inclusion is enabled.
func isRootVolume(dir string) bool {
	clean := filepath.Clean(dir)
	return clean == filepath.Dir(clean) || clean == string(filepath.Separator)
}

// Start brings the directory up (waiting if it does not exist yet),
// launches Thread M and Thread W, and returns once both are running.
func (t *Tailer) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)

	preexisting, err := t.awaitDirectory(t.ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filetail: failed to create directory watcher: %w", err)
	}
	t.watcher = watcher

	if err := t.addWatches(); err != nil {
		watcher.Close()
		return fmt.Errorf("filetail: failed to watch %s: %w", t.cfg.Directory, err)
	}

	t.wg.Add(2)
	go t.monitorLoop()
	go t.workerLoop()

	t.bootstrap(preexisting)

	return nil
}

// Stop raises the stop signal, closes the watcher, and waits for both
// threads to drain. The wait itself has no timeout.
func (t *Tailer) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
	t.wg.Wait()
}

// awaitDirectory blocks, retrying every waitInterval, until cfg.Directory
// exists, cfg.StartupWait has elapsed (StartupTimeout), or ctx is
// cancelled. It returns
// whether the directory already existed on the very first check (used to
// decide whether pre-existing files start at offset 0 or at EOF).
func (t *Tailer) awaitDirectory(ctx context.Context) (preexisted bool, err error) {
	deadline, hasDeadline := t.startupDeadline()

	first := true
	for {
		if dirExists(t.cfg.Directory) {
			return first, nil
		}
		first = false

		if hasDeadline && time.Now().After(deadline) {
			return false, xerrors.NewStartupTimeout("filetail", t.cfg.StartupWait.String())
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(waitInterval):
		}
	}
}

func (t *Tailer) startupDeadline() (time.Time, bool) {
	if t.cfg.StartupWait < 0 || math.IsInf(t.cfg.StartupWait.Seconds(), 1) {
		return time.Time{}, false
	}
	return time.Now().Add(t.cfg.StartupWait), true
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// bootstrap registers every pre-existing matching file. If the directory
// existed at construction, files start at EOF (only new content is
// emitted); if the tailer had to wait for the directory to appear, files
// start at offset 0 so the first tail call emits their full contents.
func (t *Tailer) bootstrap(directoryPreexisted bool) {
	paths, err := t.listMatchingFiles()
	if err != nil {
		t.lane.TraceError("filetail: failed to enumerate %s: %v", t.cfg.Directory, err)
		return
	}

	for _, p := range paths {
		if directoryPreexisted {
			t.registerAtEOF(p)
		} else {
			t.enqueue(DirEvent{Kind: Add, Path: p, Timestamp: time.Now().UnixNano()})
		}
	}
}

func (t *Tailer) enqueue(ev DirEvent) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

func (t *Tailer) matchesFilter(relPath string) bool {
	matched, err := filepath.Match(t.cfg.filter(), filepath.Base(relPath))
	return err == nil && matched
}

func (t *Tailer) relPath(absPath string) string {
	rel, err := filepath.Rel(t.cfg.Directory, absPath)
	if err != nil {
		return absPath
	}
	return rel
}
