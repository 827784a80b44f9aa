package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"candidly/internal/errors"
)

// FileWatcher calls onChange, debounced, when any watched file is written,
// created or renamed over. Parent directories are watched too so atomic
// replace-by-rename is seen.
type FileWatcher struct {
	mu sync.RWMutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// NewFileWatcher creates a watcher over files. Empty paths are ignored.
func NewFileWatcher(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	var watched []string
	for _, f := range files {
		if f != "" && !slices.Contains(watched, f) {
			watched = append(watched, f)
		}
	}
	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}
	if len(fw.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", fw.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher
	fw.updateModTimes()

	for _, file := range fw.files {
		if err := fw.addFile(file); err != nil {
			fw.logger.Warn("Failed to watch file", "watcher", fw.name, "file", file, "error", err.Error())
		}
	}

	fw.running = true
	go fw.watchLoop()

	fw.logger.Info("File watcher started",
		"watcher", fw.name,
		"files", fw.files,
		"debounce_delay", fw.debounceDelay)
	return nil
}

// Stop stops watching. Stopping a stopped watcher is a no-op.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}
	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.running = false

	if err := fw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close %s watcher: %w", fw.name, err)
	}
	fw.logger.Info("File watcher stopped", "watcher", fw.name)
	return nil
}

func (fw *FileWatcher) addFile(file string) error {
	dir := filepath.Dir(file)
	if err := fw.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (fw *FileWatcher) updateModTimes() {
	for _, file := range fw.files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		}
	}
}

// hasFileChanged reports a newer mod time, or a deletion, since the last check.
func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, known := fw.lastModTime[file]; known && os.IsNotExist(err) {
			delete(fw.lastModTime, file)
			return true
		}
		return false
	}

	last, known := fw.lastModTime[file]
	if !known || stat.ModTime().After(last) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (fw *FileWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if fw.isRelevant(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			fw.logger.LogError(err, "File watcher error", "watcher", fw.name)

		case <-fw.reloadChan:
			if slices.ContainsFunc(fw.files, fw.hasFileChanged) {
				fw.logger.Info("Watched files changed, reloading", "watcher", fw.name)
				fw.onChange()
			}

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return slices.ContainsFunc(fw.files, func(file string) bool {
		return filepath.Clean(event.Name) == filepath.Clean(file)
	})
}

func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// WatchedFiles returns the watched paths
func (fw *FileWatcher) WatchedFiles() []string {
	return slices.Clone(fw.files)
}
