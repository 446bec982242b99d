package server

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"jdroaster/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// CertWatcher watches certificate files and calls back once per burst of
// changes
type CertWatcher struct {
	mu sync.RWMutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func()
	logger         *errors.Logger

	running bool
}

// NewCertWatcher creates a watcher for the non-empty paths among certFile,
// keyFile and caFile
func NewCertWatcher(certFile, keyFile, caFile string, debounceDelay time.Duration, reloadCallback func(), logger *errors.Logger) *CertWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	var files []string
	for _, f := range []string{certFile, keyFile, caFile} {
		if f != "" {
			files = append(files, f)
		}
	}

	return &CertWatcher{
		files:          files,
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1),
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start begins watching certificate files for changes
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	cw.fsWatcher = watcher

	if err := cw.updateModTimes(); err != nil {
		_ = cw.fsWatcher.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range cw.files {
		if err := cw.addFileToWatcher(file); err != nil {
			cw.logger.Warn("Failed to watch certificate file", "file", file, "error", err)
		}
	}

	cw.running = true
	go cw.watchLoop()

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce_delay", cw.debounceDelay)
	return nil
}

// Stop stops the certificate file watcher
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}

	close(cw.stopChan)
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.running = false

	if err := cw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close file system watcher: %w", err)
	}

	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

// addFileToWatcher watches the file's directory, which also catches the
// rename-into-place that atomic writers use
func (cw *CertWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)
	if err := cw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if err := cw.fsWatcher.Add(file); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	return nil
}

// updateModTimes records the current modification time of every file
func (cw *CertWatcher) updateModTimes() error {
	for _, file := range cw.files {
		stat, err := os.Stat(file)
		if err == nil {
			cw.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged checks if a file has been modified since last check
func (cw *CertWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := cw.lastModTime[file]; exists {
				delete(cw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := cw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		cw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

// hasAnyFileChanged checks every file so all mod times stay current
func (cw *CertWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range cw.files {
		if cw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

// watchLoop is the main event loop for file watching
func (cw *CertWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.fsWatcher.Events:
			if !ok {
				return
			}
			if cw.shouldProcessEvent(event) {
				cw.scheduleReload()
			}

		case err, ok := <-cw.fsWatcher.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "File watcher error")

		case <-cw.reloadChan:
			if cw.hasAnyFileChanged() {
				cw.logger.Info("Certificate files changed, triggering reload")
				cw.reloadCallback()
			}

		case <-cw.stopChan:
			return
		}
	}
}

// shouldProcessEvent reports whether the event touches a watched file
func (cw *CertWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return slices.ContainsFunc(cw.files, func(file string) bool {
		return filepath.Clean(event.Name) == filepath.Clean(file)
	})
}

// scheduleReload schedules a debounced reload
func (cw *CertWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}

	cw.debounceTimer = time.AfterFunc(cw.debounceDelay, func() {
		select {
		case cw.reloadChan <- struct{}{}:
		default:
			// a reload is already pending
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.running
}

// GetWatchedFiles returns the list of files being watched
func (cw *CertWatcher) GetWatchedFiles() []string {
	return slices.Clone(cw.files)
}
