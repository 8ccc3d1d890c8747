// Package loader implements the reasoner's file-loading convenience
// (spec.md §6.4): reading a KIF file into ExternalInput events at
// startup, and optionally watching it for changes. Grounded on the
// teacher's internal/core/mangle_watcher.go debounced fsnotify loop,
// adapted from "revalidate .mg files against the Mangle kernel" to
// "re-stream a .kif file's terms onto the event bus."
package loader

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/kifparse"
)

// FileBase is the ExternalInput.Base priority used for file-loaded
// input, matching the teacher-derived convention recorded in
// eventbus.ExternalInput's doc comment (10 file/WS, 15 LLM).
const FileBase = 10

const debounceWindow = 250 * time.Millisecond

// FileLoader streams a KIF file's terms into ExternalInput events and
// optionally re-streams it whenever the file changes on disk.
type FileLoader struct {
	bus    *eventbus.Bus
	logger *zap.Logger
	path   string
	note   string
	runID  string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	watching bool
}

// New returns a FileLoader that will publish parsed terms from path
// under SourceNote note (use "" for the global KB).
func New(bus *eventbus.Bus, logger *zap.Logger, path, note string) *FileLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{
		bus:    bus,
		logger: logger,
		path:   path,
		note:   note,
		runID:  uuid.NewString(),
	}
}

// Load reads the file once and publishes one ExternalInput per top-level
// term it contains. A missing file is not an error: there is simply
// nothing to load yet, matching spec.md §6.4's "optional bootstrap".
func (l *FileLoader) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("rules file not present, skipping", zap.String("run_id", l.runID), zap.String("path", l.path))
			return nil
		}
		return err
	}

	terms, err := kifparse.Parse(string(data))
	if err != nil {
		l.logger.Warn("dropping malformed rules file tail", zap.String("run_id", l.runID), zap.String("path", l.path), zap.Error(err))
	}
	for _, t := range terms {
		l.bus.Publish(eventbus.ExternalInput{KIF: t, SourceNote: l.note, Base: FileBase})
	}
	l.logger.Info("loaded rules file", zap.String("run_id", l.runID), zap.String("path", l.path), zap.Int("terms", len(terms)))
	return nil
}

// Watch starts an fsnotify watch on the file's directory and re-runs
// Load on every debounced write, until Stop is called. It is a no-op if
// already watching.
func (l *FileLoader) Watch() error {
	l.mu.Lock()
	if l.watching {
		l.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	dir := parentDir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		l.mu.Unlock()
		return err
	}

	l.watcher = watcher
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.watching = true
	l.mu.Unlock()

	go l.run()
	return nil
}

// Stop tears down the active watch, if any.
func (l *FileLoader) Stop() {
	l.mu.Lock()
	if !l.watching {
		l.mu.Unlock()
		return
	}
	l.watching = false
	stopCh, doneCh, watcher := l.stopCh, l.doneCh, l.watcher
	l.mu.Unlock()

	close(stopCh)
	<-doneCh
	watcher.Close()
}

func (l *FileLoader) run() {
	defer close(l.doneCh)

	var debounce *time.Timer
	for {
		select {
		case <-l.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Name != l.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				if err := l.Load(); err != nil {
					l.logger.Warn("reload failed", zap.String("run_id", l.runID), zap.Error(err))
				}
			})
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("watch error", zap.String("run_id", l.runID), zap.Error(err))
		}
	}
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
