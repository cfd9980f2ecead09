package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// debounceWindow coalesces the burst of events a single spreadsheet save
	// produces into one reload.
	debounceWindow = 250 * time.Millisecond

	// selfSaveWindow is how long after one of our own saves a file event is
	// still attributed to that save rather than to an external editor.
	selfSaveWindow = 2 * time.Second
)

// Watcher observes the backing workbook and invokes a handler when somebody
// edits it out-of-band. Events caused by the store's own saves are suppressed
// so a save does not feed back into the coordinator as a phantom external
// change.
type Watcher struct {
	store   *ExcelStore
	handler func()
	logger  *slog.Logger
}

// NewWatcher creates a watcher for the store's workbook. The handler is
// invoked once per external change, from the watcher's goroutine.
func NewWatcher(store *ExcelStore, handler func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:   store,
		handler: handler,
		logger:  logger.With(slog.String("component", "store.watcher")),
	}
}

// Run blocks watching the workbook's directory until the context is
// cancelled. Watching the directory rather than the file keeps the watch
// alive across the delete-and-rename dance most spreadsheet editors perform
// on save.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.logger.Info("Watching workbook for external changes",
		slog.String("path", w.store.Path()))

	target := filepath.Clean(w.store.Path())
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			if w.store.SavedWithin(selfSaveWindow) {
				w.logger.Debug("Ignoring file event from our own save")
				continue
			}
			w.logger.Info("External workbook change detected",
				slog.String("path", w.store.Path()))
			w.handler()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", slog.String("error", err.Error()))
		}
	}
}
