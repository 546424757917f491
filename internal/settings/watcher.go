package settings

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces rapid write events from editors and atomic saves.
const watchDebounce = 100 * time.Millisecond

// fileWatcher watches the settings file and invokes a callback on change.
// It watches the parent directory rather than the file itself so that
// rename-based atomic saves keep delivering events.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	log      *slog.Logger

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// newFileWatcher starts watching the settings file's directory.
func newFileWatcher(path string, onChange func(), log *slog.Logger) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &fileWatcher{
		watcher:  fsw,
		path:     abs,
		onChange: onChange,
		log:      log,
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// loop processes fsnotify events with debouncing.
func (w *fileWatcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("settings watcher error", "error", err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.onChange()
		}
	}
}

// stop shuts down the watcher and waits for the loop to exit.
func (w *fileWatcher) stop() {
	close(w.closeCh)
	w.watcher.Close()
	w.wg.Wait()
}
