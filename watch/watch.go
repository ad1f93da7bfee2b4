// Package watch triggers traceability re-scans when files under the
// watched roots change. It owns no scan state: consumers re-run the full
// pass on every trigger.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// triggerChannelBuffer is the size of the trigger channel.
	triggerChannelBuffer = 16
)

// DefaultDebounce is the quiet period after a change before a trigger
// fires.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExcludeDirs lists directory names never watched.
var DefaultExcludeDirs = []string{".git", "node_modules", "vendor"}

// Config configures file watching.
type Config struct {
	// Roots are the directories to watch recursively. Typically the
	// specification roots plus the code roots.
	Roots []string

	// Debounce is how long to wait for more changes before triggering.
	Debounce time.Duration

	// ExcludeDirs lists directory names to skip (e.g., [".git", "vendor"]).
	ExcludeDirs []string

	// Logger for logging events.
	Logger *slog.Logger
}

// Trigger is one batched change notification. Paths lists the files
// whose content changed since the last trigger, sorted.
type Trigger struct {
	Paths []string
}

// Watcher watches the configured roots and emits re-scan triggers.
type Watcher struct {
	config   Config
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool

	// Debouncing: collect changes before triggering
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	// Output channel
	triggers chan Trigger

	// Metrics
	droppedTriggers atomic.Int64
}

// NewWatcher creates a new file watcher.
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := config.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	// Build exclude set
	excludeDirs := config.ExcludeDirs
	if len(excludeDirs) == 0 {
		excludeDirs = DefaultExcludeDirs
	}
	excludes := make(map[string]bool)
	for _, dir := range excludeDirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:   config,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		excludes: excludes,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		triggers: make(chan Trigger, triggerChannelBuffer),
	}, nil
}

// Triggers returns the channel of re-scan triggers.
func (w *Watcher) Triggers() <-chan Trigger {
	return w.triggers
}

// Start begins watching the configured roots for changes.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.config.Roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}

	// Start the event processing goroutine
	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"roots", w.config.Roots,
		"debounce", w.debounce)

	return nil
}

// Stop stops the watcher.
// The trigger channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedTriggers returns the number of triggers dropped due to channel
// overflow.
func (w *Watcher) DroppedTriggers() int64 {
	return w.droppedTriggers.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Only watch directories
		if !info.IsDir() {
			return nil
		}

		// Skip excluded and hidden directories, but never a root itself
		base := filepath.Base(path)
		if path != root && (w.excludes[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		// Add watch
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.triggers) // Close trigger channel when goroutine exits
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	// Handle directory creation (for new watches)
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
	}

	// Skip files in excluded directories
	if w.inExcludedDir(path) {
		return
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", path,
		"op", event.Op.String())
}

// inExcludedDir reports whether any path element is an excluded or
// hidden directory.
func (w *Watcher) inExcludedDir(path string) bool {
	dir := filepath.Dir(path)
	for _, element := range strings.Split(filepath.ToSlash(dir), "/") {
		if w.excludes[element] {
			return true
		}
	}
	return false
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending turns accumulated changes into one trigger. Writes that
// leave file content unchanged are suppressed by hash comparison.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	// Copy and clear pending
	toProcess := make(map[string]fsnotify.Op)
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changed []string
	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			// File deleted or renamed
			w.hashMu.Lock()
			delete(w.hashes, path)
			w.hashMu.Unlock()

			changed = append(changed, path)
			continue
		}

		// Check if file still exists
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.hashMu.Lock()
			delete(w.hashes, path)
			w.hashMu.Unlock()

			changed = append(changed, path)
			continue
		}

		// Read file and compute hash
		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read file for hash check",
				"path", path,
				"error", err)
			continue
		}

		newHash := contentHash(content)

		// Check if content actually changed
		w.hashMu.RLock()
		oldHash, hadHash := w.hashes[path]
		w.hashMu.RUnlock()
		if hadHash && oldHash == newHash {
			// Content unchanged, skip
			continue
		}

		w.hashMu.Lock()
		w.hashes[path] = newHash
		w.hashMu.Unlock()

		changed = append(changed, path)
	}

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	w.sendTrigger(Trigger{Paths: changed})
}

// sendTrigger sends a trigger to the output channel.
func (w *Watcher) sendTrigger(trigger Trigger) {
	select {
	case w.triggers <- trigger:
		w.logger.Debug("Sent re-scan trigger",
			"changed", len(trigger.Paths))
	default:
		dropped := w.droppedTriggers.Add(1)
		w.logger.Warn("Trigger channel full, dropping trigger",
			"changed", len(trigger.Paths),
			"total_dropped", dropped)
	}
}

// contentHash returns the hex-encoded SHA-256 of content.
func contentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
