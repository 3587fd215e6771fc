package filetail

import (
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// monitorLoop is Thread M: it owns the directory handle (here, the
// fsnotify watcher) and converts kernel/OS change notifications into
// DirEvent values. It does not interpret file content.
//
// fsnotify cannot distinguish a genuine new file from the "new name" half
// of a rename at the notification layer (both surface as a Create), so
// every Create is enqueued as RenameNew: RenameNew's own handling already
// falls back to Add when the file's identity isn't already known to the
// index, which subsumes the plain-Add case exactly.
func (t *Tailer) monitorLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return

		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.handleFSEvent(ev)

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				// The kernel notification channel overflowed or
				// otherwise failed; re-enumerate the whole directory.
				t.enqueue(DirEvent{Kind: ReInit, Timestamp: time.Now().UnixNano()})
			}
		}
	}
}

func (t *Tailer) handleFSEvent(ev fsnotify.Event) {
	rel := t.relPath(ev.Name)
	now := time.Now().UnixNano()

	switch {
	case ev.Op&fsnotify.Create != 0:
		if t.cfg.IncludeSubdirs {
			if info, err := statIsDir(ev.Name); err == nil && info {
				t.watcher.Add(ev.Name)
				t.enqueue(DirEvent{Kind: RenameNew, Path: rel, IsDir: true, Timestamp: now})
				return
			}
		}
		t.enqueue(DirEvent{Kind: RenameNew, Path: rel, Timestamp: now})

	case ev.Op&fsnotify.Write != 0:
		t.enqueue(DirEvent{Kind: Modify, Path: rel, Timestamp: now})

	case ev.Op&fsnotify.Remove != 0:
		t.enqueue(DirEvent{Kind: Remove, Path: rel, Timestamp: now})

	case ev.Op&fsnotify.Rename != 0:
		t.enqueue(DirEvent{Kind: RenameOld, Path: rel, Timestamp: now})
	}
}

func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
