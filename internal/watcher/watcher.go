// Package watcher reports changes to the configuration file so a running
// server can pick up settings that are safe to change live.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/switchboard/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events most editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// EventType is the kind of change observed on a watched file.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single, debounced change to a file.
type ChangeEvent struct {
	Type EventType
	Path string
}

// Filter reports whether a path is interesting.
type Filter func(path string) bool

// Handler receives a debounced batch of changes, at most one event per path.
type Handler func(events []ChangeEvent) error

// FileWatcher watches directories and delivers filtered, debounced batches
// of change events to its handlers.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	logger    logging.Logger

	mu       sync.RWMutex
	filters  []Filter
	handlers []Handler

	stopOnce sync.Once
}

// NewFileWatcher creates a watcher that waits delay after the last event
// before delivering a batch.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}

	return &FileWatcher{
		watcher:   w,
		debouncer: newDebouncer(delay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// WatchFile watches a single file. The parent directory is watched rather
// than the file itself so that editors which replace the file on save
// (write to temp, rename over) keep being observed.
func WatchFile(path string, delay time.Duration, logger logging.Logger, handler Handler) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fw, err := NewFileWatcher(delay, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(NameFilter(filepath.Base(abs)))
	fw.AddHandler(handler)

	if err := fw.AddPath(filepath.Dir(abs)); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}

// AddFilter adds a filter. An event is delivered only if every filter
// accepts its path.
func (fw *FileWatcher) AddFilter(filter Filter) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler Handler) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a directory (non-recursively).
func (fw *FileWatcher) AddPath(path string) error {
	if err := fw.watcher.Add(filepath.Clean(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	return nil
}

// Start runs the event loops until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.debouncer.run(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "watch error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	fw.mu.RLock()
	filters := fw.filters
	fw.mu.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventTypeCreated
	case event.Has(fsnotify.Write):
		eventType = EventTypeModified
	case event.Has(fsnotify.Remove):
		eventType = EventTypeDeleted
	case event.Has(fsnotify.Rename):
		eventType = EventTypeRenamed
	default:
		// chmod only
		return
	}

	fw.debouncer.add(ChangeEvent{Type: eventType, Path: event.Name})
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mu.RLock()
			handlers := fw.handlers
			fw.mu.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Warn(ctx, err, "change handler failed", "events", len(events))
				}
			}
		}
	}
}

type debouncer struct {
	delay  time.Duration
	events chan ChangeEvent
	output chan []ChangeEvent

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]ChangeEvent
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 64),
		output:  make(chan []ChangeEvent, 8),
		pending: make(map[string]ChangeEvent),
	}
}

func (d *debouncer) add(event ChangeEvent) {
	select {
	case d.events <- event:
	default:
		// Full; the pending batch will still flush.
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.record(event)
		}
	}
}

func (d *debouncer) record(event ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Last event per path wins.
	d.pending[event.Path] = event

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return
	}

	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
	}

	clear(d.pending)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// NameFilter accepts only paths whose base name is name.
func NameFilter(name string) Filter {
	return func(path string) bool {
		return filepath.Base(path) == name
	}
}
