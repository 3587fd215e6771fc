package filetail

import (
	"os"
	"path/filepath"
	"time"

	"logmonitor/internal/fileid"
)

// listMatchingFiles walks cfg.Directory (recursively if configured) and
// returns the relative paths of every regular file matching cfg.filter().
func (t *Tailer) listMatchingFiles() ([]string, error) {
	var out []string

	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != t.cfg.Directory && !t.cfg.IncludeSubdirs {
				return filepath.SkipDir
			}
			return nil
		}
		rel := t.relPath(path)
		if t.matchesFilter(rel) {
			out = append(out, rel)
		}
		return nil
	}

	if err := filepath.WalkDir(t.cfg.Directory, walk); err != nil {
		return nil, err
	}
	return out, nil
}

// addWatches subscribes the fsnotify watcher to the root directory and, if
// configured, every existing subdirectory.
func (t *Tailer) addWatches() error {
	if err := t.watcher.Add(t.cfg.Directory); err != nil {
		return err
	}
	if !t.cfg.IncludeSubdirs {
		return nil
	}

	return filepath.WalkDir(t.cfg.Directory, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == t.cfg.Directory {
			return nil
		}
		return t.watcher.Add(path)
	})
}

// registerAtEOF registers a pre-existing file with NextReadOffset set to
// its current size, so only content written after startup is emitted.
func (t *Tailer) registerAtEOF(relPath string) {
	abs := filepath.Join(t.cfg.Directory, relPath)
	info, err := os.Stat(abs)
	if err != nil {
		return
	}

	entry := &fileid.Entry{
		LongPath:          relPath,
		NextReadOffset:    info.Size(),
		LastReadTimestamp: time.Now().UnixNano(),
	}
	t.index.Put(relPath, entry, "", t.identityOf(abs))
}

func (t *Tailer) identityOf(absPath string) *fileid.Identity {
	f, err := os.Open(absPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	id, err := fileid.FromFile(f)
	if err != nil {
		return nil
	}
	return &id
}
