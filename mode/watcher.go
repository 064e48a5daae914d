package mode

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to mode definition files so the server can
// rebuild the registry. Events are coalesced into an unbuffered-ish
// channel: if a reload is already pending, further events are dropped.
type Watcher struct {
	files  []string
	log    *slog.Logger
	events chan string
}

// NewWatcher creates a watcher over the given mode files. Files that do
// not exist yet are still registered where possible; changes to them are
// picked up if the path can be watched.
func NewWatcher(files []string, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		files:  files,
		log:    log,
		events: make(chan string, 4),
	}
}

// Events returns the channel of changed file paths. The channel is closed
// when the watcher stops.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start begins watching in a background goroutine. The goroutine exits and
// the events channel closes when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, file := range w.files {
		// Missing files can't be added; not an error — the registry
		// simply won't reload for scopes that were never created.
		if err := fsw.Add(file); err != nil {
			w.log.Debug("not watching mode file", "path", file, "error", err)
		}
	}

	go func() {
		defer fsw.Close()
		defer close(w.events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case w.events <- ev.Name:
				default:
				}
				w.log.Info("mode file changed", "path", ev.Name, "op", ev.Op.String())
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.log.Error("mode watcher error", "error", err)
			}
		}
	}()
	return nil
}
