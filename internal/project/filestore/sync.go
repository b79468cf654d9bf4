package filestore

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SyncManager detects tracked files that change on disk behind the store's
// back. Commits made through the store are not reported.
type SyncManager struct {
	mu       sync.Mutex
	store    *Store
	interval time.Duration
	running  bool
	stopped  bool
	stop     chan struct{}
	done     chan struct{}
	watcher  *fsnotify.Watcher
	watched  map[string]bool

	// known holds the last observed modification time per path.
	known map[string]time.Time

	onExternalChange []func(path string)
}

// NewSyncManager creates a synchronization manager for store.
func NewSyncManager(store *Store, checkInterval time.Duration) *SyncManager {
	if checkInterval <= 0 {
		checkInterval = 2 * time.Second
	}
	sm := &SyncManager{
		store:    store,
		interval: checkInterval,
		known:    make(map[string]time.Time),
		watched:  make(map[string]bool),
	}
	store.OnOpen(sm.adopt)
	store.OnCommit(sm.Track)
	store.OnClose(sm.forget)
	for _, path := range store.Paths() {
		sm.Track(path)
	}
	return sm
}

// Track records the current modification time of path as its baseline.
// Calling it before a file is read and opened makes changes between the
// read and the open visible to CheckNow. It does nothing after Stop.
func (sm *SyncManager) Track(path string) {
	sm.record(path, true)
}

// adopt tracks a newly opened path, keeping a baseline set earlier by Track.
func (sm *SyncManager) adopt(path string) {
	sm.record(path, false)
}

func (sm *SyncManager) record(path string, replace bool) {
	sm.mu.Lock()
	if sm.stopped {
		sm.mu.Unlock()
		return
	}
	if _, seen := sm.known[path]; seen && !replace {
		if sm.watcher != nil {
			sm.watchDir(path)
		}
		sm.mu.Unlock()
		return
	}
	sm.mu.Unlock()

	mod := sm.modTime(path)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.stopped {
		return
	}
	sm.known[path] = mod
	if sm.watcher != nil {
		sm.watchDir(path)
	}
}

func (sm *SyncManager) forget(path string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.known, path)
}

// modTime returns the modification time of path, or the zero time when it
// cannot be stat'ed.
func (sm *SyncManager) modTime(path string) time.Time {
	info, err := sm.store.FS().Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// watchDir adds the directory holding path to the fsnotify watcher.
// Directories are watched instead of files so that editors replacing a file
// by rename are still seen. Must be called with sm.mu held.
func (sm *SyncManager) watchDir(path string) {
	dir := sm.store.FS().Dir(path)
	if sm.watched[dir] {
		return
	}
	if err := sm.watcher.Add(dir); err != nil {
		// Not on the OS file system (or gone); polling still covers it.
		sm.store.Logger().Debug("watch skipped", zap.String("dir", dir), zap.Error(err))
		return
	}
	sm.watched[dir] = true
}

// Start begins monitoring. Tracked files are watched with fsnotify where
// possible and polled every interval regardless. Starting again after Stop
// takes fresh baselines for every open file.
func (sm *SyncManager) Start() {
	sm.mu.Lock()
	if sm.running {
		sm.mu.Unlock()
		return
	}
	restart := sm.stopped
	sm.stopped = false
	sm.mu.Unlock()

	if restart {
		sm.rebaseline()
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.running {
		return
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		sm.store.Logger().Warn("fsnotify unavailable, polling only", zap.Error(err))
	} else {
		sm.watcher = w
		for path := range sm.known {
			sm.watchDir(path)
		}
	}

	sm.running = true
	sm.stop = make(chan struct{})
	sm.done = make(chan struct{})

	go sm.monitorLoop(sm.watcher)
}

// rebaseline replaces all baselines with the current state of the store.
func (sm *SyncManager) rebaseline() {
	paths := sm.store.Paths()
	known := make(map[string]time.Time, len(paths))
	for _, path := range paths {
		known[path] = sm.modTime(path)
	}
	sm.mu.Lock()
	sm.known = known
	sm.mu.Unlock()
}

// Stop stops monitoring and waits for the monitor loop to exit. After Stop
// the store's open, commit and close events no longer touch the file
// system on the manager's behalf.
func (sm *SyncManager) Stop() {
	sm.mu.Lock()
	sm.stopped = true
	if !sm.running {
		sm.mu.Unlock()
		return
	}
	sm.running = false
	close(sm.stop)
	w := sm.watcher
	sm.watcher = nil
	sm.watched = make(map[string]bool)
	sm.mu.Unlock()

	<-sm.done
	if w != nil {
		_ = w.Close()
	}
}

// IsRunning returns true if the sync manager is running.
func (sm *SyncManager) IsRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.running
}

func (sm *SyncManager) monitorLoop(w *fsnotify.Watcher) {
	defer close(sm.done)

	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if w != nil {
		events = w.Events
		errs = w.Errors
	}

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.CheckNow(context.Background())
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				if sm.store.IsOpen(ev.Name) {
					sm.CheckNow(context.Background())
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			sm.store.Logger().Warn("watch error", zap.Error(err))
		}
	}
}

// CheckNow compares every tracked file against its baseline and notifies
// handlers for each one that changed. It returns the changed paths.
func (sm *SyncManager) CheckNow(ctx context.Context) []string {
	var changed []string
	for _, path := range sm.store.Paths() {
		if ctx.Err() != nil {
			break
		}
		mod := sm.modTime(path)

		sm.mu.Lock()
		last, seen := sm.known[path]
		sm.known[path] = mod
		sm.mu.Unlock()

		if seen && !last.Equal(mod) {
			changed = append(changed, path)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	sm.mu.Lock()
	handlers := make([]func(path string), len(sm.onExternalChange))
	copy(handlers, sm.onExternalChange)
	sm.mu.Unlock()

	for _, path := range changed {
		sm.store.Logger().Info("external change", zap.String("path", path))
		for _, handler := range handlers {
			handler(path)
		}
	}
	return changed
}

// OnExternalChange registers a handler called when a tracked file is
// modified outside the store.
func (sm *SyncManager) OnExternalChange(handler func(path string)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onExternalChange = append(sm.onExternalChange, handler)
}
