package local

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// contentOps are the events that can change what a load returns.
const contentOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// fsWatcher wraps fsnotify.Watcher with a simpler interface
type fsWatcher interface {
	Add(path string) error
	Close() error
	Events() <-chan fsEvent
	Errors() <-chan error
}

type fsEvent struct {
	Name string
	Op   fsnotify.Op
}

func (e fsEvent) created() bool {
	return e.Op.Has(fsnotify.Create)
}

// watchTree keeps a watcher registered on every directory a pattern can
// match in, including directories created after the watch started.
type watchTree struct {
	watcher fsWatcher
	base    string // deepest directory of the pattern without metacharacters
	deep    bool   // matches can sit below base, not only directly in it
	match   func(name string) bool
}

// covers reports whether dir is on the way down to base, is base itself, or
// lies below base when the pattern is deep.
func (t *watchTree) covers(dir string) bool {
	return within(dir, t.base) || (t.deep && within(t.base, dir))
}

// add registers dir and every covered directory below it. It reports whether
// a matching file was found on the way.
func (t *watchTree) add(dir string) (matched bool) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if !isTempName(d.Name()) && t.match(p) {
				matched = true
			}
			return nil
		}
		if !t.covers(p) {
			return filepath.SkipDir
		}
		_ = t.watcher.Add(p)
		return nil
	})
	return matched
}

// within reports whether path is parent or below it.
func within(parent, path string) bool {
	if path == parent {
		return true
	}
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(path, parent)
}

// fsnotifyWatcher forwards fsnotify events until the watcher is closed.
// Chmod-only events and events on in-flight atomic writes are dropped.
type fsnotifyWatcher struct {
	watcher *fsnotify.Watcher
	events  chan fsEvent
	errors  chan error
	done    chan struct{}
}

func newFSWatcher() (fsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fsnotifyWatcher{
		watcher: w,
		events:  make(chan fsEvent),
		errors:  make(chan error),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(fw.events)
		defer close(fw.errors)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&contentOps == 0 {
					continue
				}
				if isTempName(filepath.Base(event.Name)) {
					continue
				}
				select {
				case fw.events <- fsEvent{Name: event.Name, Op: event.Op}:
				case <-fw.done:
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case fw.errors <- err:
				case <-fw.done:
					return
				}
			}
		}
	}()

	return fw, nil
}

func (w *fsnotifyWatcher) Add(path string) error {
	return w.watcher.Add(path)
}

func (w *fsnotifyWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *fsnotifyWatcher) Events() <-chan fsEvent {
	return w.events
}

func (w *fsnotifyWatcher) Errors() <-chan error {
	return w.errors
}
