package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// ChangeHooks receives the notifications a Watcher derives from file events.
type ChangeHooks interface {
	OnPostCreated(ctx context.Context, postID int64) error
	OnPostEdited(ctx context.Context, postID int64) error
	OnPostDeleted(ctx context.Context, postID int64) error
}

// Watcher turns file events in a DirSource directory into change
// notifications: a created document file is a created post, a written one an
// edited post, and a removed or renamed one a deleted post.
type Watcher struct {
	dir   string
	hooks ChangeHooks
	fw    *fsnotify.Watcher
	log   logger.Logger
}

// NewWatcher starts watching dir. Run must be called to deliver events.
func NewWatcher(dir string, hooks ChangeHooks, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, hooks: hooks, fw: fw, log: log}, nil
}

// Run delivers notifications until ctx is done, then releases the watch.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.fw.Close() }()

	w.log.Info(ctx, "watching source directory", logger.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.dispatch(ctx, ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			metrics.RecordErrorByComponent("source", "watch")
			w.log.Warn(ctx, "source watch error", logger.Error(err))
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, ev fsnotify.Event) {
	id, ok := postIDFromName(filepath.Base(ev.Name))
	if !ok {
		return
	}

	var (
		kind   string
		notify func(context.Context, int64) error
	)
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind, notify = "deleted", w.hooks.OnPostDeleted
	case ev.Has(fsnotify.Create):
		kind, notify = "created", w.hooks.OnPostCreated
	case ev.Has(fsnotify.Write):
		kind, notify = "edited", w.hooks.OnPostEdited
	default:
		return
	}

	if err := notify(ctx, id); err != nil {
		w.log.Warn(ctx, "source change not delivered",
			logger.Int64("post_id", id),
			logger.String("kind", kind),
			logger.Error(err))
	}
}
