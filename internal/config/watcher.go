package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the settings file whenever it changes on disk.
// The directory is watched rather than the file so that editors which
// save by renaming a temporary file are still noticed.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	onChange func(Config)
	closeCh  chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewWatcher creates a watcher for the settings file at path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		watcher:  fw,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnChange sets the callback invoked with the reloaded settings.
// The callback runs on the watcher goroutine.
func (w *Watcher) OnChange(callback func(Config)) {
	w.onChange = callback
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// Done is closed once the watcher goroutine has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
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
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config: watch error: %v", err)
		case <-fire:
			fire = nil
			w.reload()
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("Config: ignoring invalid settings: %v", err)
		return
	}
	log.Printf("Config: reloaded %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
