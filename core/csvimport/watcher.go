package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trackcrate/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher reconciles every .csv file dropped into a directory for one
// configured user. Useful for single-operator deployments where analysis
// exports land in a shared folder.
type Watcher struct {
	reconciler *Reconciler
	dir        string
	userID     int64
}

// NewWatcher creates a watcher over dir for the given user.
func NewWatcher(reconciler *Reconciler, dir string, userID int64) *Watcher {
	return &Watcher{reconciler: reconciler, dir: dir, userID: userID}
}

// Start begins watching in a background goroutine until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	logger.Info("csv drop directory watcher started",
		logger.String("dir", w.dir),
		logger.Int64("userId", w.userID))

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create == 0 {
					continue
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
					continue
				}
				// Each file settles and reconciles on its own
				// goroutine so the event loop keeps draining.
				go func(path string) {
					time.Sleep(500 * time.Millisecond)
					w.process(ctx, path)
				}(event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("csv watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

func (w *Watcher) process(ctx context.Context, path string) {
	file, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open dropped csv",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	defer file.Close()

	report, err := w.reconciler.Reconcile(ctx, w.userID, file)
	if err != nil {
		logger.Error("failed to reconcile dropped csv",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}

	logger.Info("dropped csv reconciled",
		logger.String("path", path),
		logger.Int("updated", report.Updated),
		logger.Int("notFound", report.NotFound))
}
