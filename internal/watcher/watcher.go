// =============================================================================
// Line-Item Autofill - Input Watcher
// =============================================================================
//
// Watches the input directory and hands each new or rewritten source file to
// a handler once the file has been quiet for the debounce period. Exports and
// OCR output are often written in several chunks; debouncing keeps the
// handler from seeing a half-written file.
//
// The handler runs on the watcher's own goroutine, one file at a time. Fills
// share a single browser tab and must not overlap.
//
// =============================================================================

package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// HandlerFunc processes one settled file.
type HandlerFunc func(ctx context.Context, path string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	FilesHandled  int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher debounces filesystem events for one directory.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	exts     map[string]bool
	handler  HandlerFunc
	log      *zap.Logger
	debounce time.Duration
	tick     time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// New creates a Watcher for dir. Only files whose extension (lower case,
// with dot) is in exts are reported.
func New(dir string, exts []string, debounce time.Duration, handler HandlerFunc, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	tick := debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}

	return &Watcher{
		watcher:  fw,
		dir:      dir,
		exts:     extSet,
		handler:  handler,
		log:      log,
		debounce: debounce,
		tick:     tick,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Unlock()
		return err
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("watching input directory", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop, including any
// handler in progress, to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("error closing watcher", zap.Error(err))
	}
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			for _, path := range w.settled(time.Now()) {
				if ctx.Err() != nil {
					return
				}
				w.log.Debug("file settled", zap.String("path", path))
				w.handler(ctx, path)
				w.mu.Lock()
				w.stats.FilesHandled++
				w.mu.Unlock()
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.exts[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return
	}

	now := time.Now()
	w.mu.Lock()
	w.pending[event.Name] = now
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = now
	w.mu.Unlock()
}

// settled removes and returns the pending files that have been quiet for the
// debounce period, in name order.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}
