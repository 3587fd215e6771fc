package filetail

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"logmonitor/internal/fileid"
	"logmonitor/internal/metrics"
)

// workerLoop is Thread W: it owns the PathIndex, the FileEntry map and the
// DirEvent queue. It wakes on a new DirEvent, a 30-second sweep tick, or
// the stop signal; on stop it drains without further reading and exits.
func (t *Tailer) workerLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			t.drain()
			return

		case ev := <-t.events:
			t.handleDirEvent(ev)

		case <-ticker.C:
			t.sweep()
		}
	}
}

// drain consumes whatever is left in the queue without performing any
// further file I/O.
func (t *Tailer) drain() {
	for {
		select {
		case <-t.events:
		default:
			return
		}
	}
}

// sweep re-reads every known file from NextReadOffset to EOF, catching
// writes that did not raise a change notification within the window (e.g.
// on network filesystems).
func (t *Tailer) sweep() {
	for _, entry := range t.index.Entries() {
		abs := filepath.Join(t.cfg.Directory, entry.LongPath)
		tailOnce(abs, t.cfg.SourceID, entry, t.lane)
	}
}

func (t *Tailer) handleDirEvent(ev DirEvent) {
	switch ev.Kind {
	case Add:
		t.handleAdd(ev.Path)

	case Modify:
		t.handleModify(ev.Path, ev.Timestamp)

	case Remove:
		if t.matchesFilter(ev.Path) {
			t.index.Remove(ev.Path)
		}

	case RenameOld:
		// Ignore: the old entry stays registered under its old path
		// until the matching RenameNew resolves it by identity.

	case RenameNew:
		if ev.IsDir {
			t.handleRenameNewDir(ev.Path)
		} else {
			t.handleRenameNewFile(ev.Path)
		}

	case ReInit:
		t.handleReInit()
	}
}

func (t *Tailer) handleAdd(relPath string) {
	if !t.matchesFilter(relPath) {
		return
	}
	entry := &fileid.Entry{
		LongPath:          relPath,
		NextReadOffset:    0,
		LastReadTimestamp: time.Now().UnixNano(),
	}
	abs := filepath.Join(t.cfg.Directory, relPath)
	t.index.Put(relPath, entry, "", t.identityOf(abs))
	tailOnce(abs, t.cfg.SourceID, entry, t.lane)
}

func (t *Tailer) handleModify(relPath string, timestamp int64) {
	if !t.matchesFilter(relPath) {
		return
	}
	entry, longPath, ok := t.index.Get(relPath)
	if !ok {
		// Modify notification for a file we haven't registered yet
		// (e.g. raced the initial enumeration): treat as Add.
		t.handleAdd(relPath)
		return
	}

	// Invariant C: Modify events older than (or tied with) the entry's
	// LastReadTimestamp are discarded.
	if timestamp <= entry.LastReadTimestamp {
		metrics.RecordDropped("file", "stale_modify")
		return
	}

	entry.LastReadTimestamp = timestamp
	tailOnce(filepath.Join(t.cfg.Directory, longPath), t.cfg.SourceID, entry, t.lane)
}

func (t *Tailer) handleRenameNewFile(relPath string) {
	abs := filepath.Join(t.cfg.Directory, relPath)
	id := t.identityOf(abs)

	if id != nil {
		if oldPath, known := t.index.ByIdentity(*id); known && oldPath != relPath {
			t.index.Rehome(oldPath, relPath)
			if !t.matchesFilter(relPath) {
				// Renamed to a name the filter no longer matches.
				t.index.Remove(relPath)
			}
			return
		}
	}

	if !t.matchesFilter(relPath) {
		return
	}
	t.handleAdd(relPath)
}

func (t *Tailer) handleRenameNewDir(relPath string) {
	if !t.cfg.IncludeSubdirs {
		return
	}
	abs := filepath.Join(t.cfg.Directory, relPath)
	_ = t.watcher.Add(abs)

	_ = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		t.handleRenameNewFile(t.relPath(path))
		return nil
	})
}

// handleReInit re-enumerates the directory after a notification-buffer
// overflow. Known files keep their offsets; newly discovered files are
// registered with offset 0.
func (t *Tailer) handleReInit() {
	paths, err := t.listMatchingFiles()
	if err != nil {
		t.lane.TraceError("filetail: ReInit enumeration of %s failed: %v", t.cfg.Directory, err)
		return
	}

	known := t.index.Entries()
	for _, p := range paths {
		if _, ok := known[strings.ToLower(p)]; ok {
			continue
		}
		t.handleAdd(p)
	}
}
