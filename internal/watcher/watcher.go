package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReportHandler receives the id of a report that appeared in the watched
// directory. An error means the report could not be used yet; a later
// event for the same file is delivered again.
type ReportHandler func(id int64) error

// NameParser maps a file name to a report id. It reports false for files
// that are not reports of the watched application.
type NameParser func(name string) (int64, bool)

type Watcher struct {
	dir               string
	parse             NameParser
	handler           ReportHandler
	logger            *zap.Logger
	lastNotifications map[int64]time.Time
	dedupTTL          time.Duration
	cleanupInterval   time.Duration
	ready             chan struct{}
	mu                sync.Mutex
}

type Option func(*Watcher)

func WithDedupTTL(ttl time.Duration) Option {
	return func(w *Watcher) {
		w.dedupTTL = ttl
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func New(dir string, parse NameParser, handler ReportHandler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:               dir,
		parse:             parse,
		handler:           handler,
		logger:            zap.NewNop(),
		lastNotifications: make(map[int64]time.Time),
		dedupTTL:          time.Minute,
		cleanupInterval:   10 * time.Minute,
		ready:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start watches the directory until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	close(w.ready)
	w.logger.Info("watching reports directory", zap.String("path", w.dir))

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.cleanupCache()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	id, ok := w.parse(filepath.Base(event.Name))
	if !ok {
		return
	}

	if !w.shouldNotify(id) {
		return
	}

	if err := w.handler(id); err != nil {
		w.logger.Debug("report not ready", zap.Int64("id", id), zap.String("op", event.Op.String()), zap.Error(err))
		return
	}

	w.logger.Debug("new report", zap.Int64("id", id), zap.String("op", event.Op.String()))
	w.markNotified(id)
}

func (w *Watcher) shouldNotify(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if last, exists := w.lastNotifications[id]; exists {
		return time.Since(last) >= w.dedupTTL
	}
	return true
}

func (w *Watcher) markNotified(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastNotifications[id] = time.Now()
}

func (w *Watcher) cleanupCache() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for id, t := range w.lastNotifications {
		if now.Sub(t) > w.dedupTTL*2 {
			delete(w.lastNotifications, id)
		}
	}
}
