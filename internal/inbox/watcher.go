package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/util"
)

// SubmittedDir is the subdirectory of the inbox that submitted files are
// moved to.
const SubmittedDir = "submitted"

const DefaultDebounce = 2 * time.Second

type FileSubmitter interface {
	SubmitFile(ctx context.Context, path string, inferOnly bool) (*models.Upload, error)
}

type WatcherOptions struct {
	InferOnly bool
	Debounce  time.Duration
	Logger    *slog.Logger
	// Rejects, when set, records files that fail for a lasting reason.
	Rejects RejectRecorder
}

// Watcher watches a drop directory and submits every accepted file placed
// in it once the file has stopped changing for the debounce delay.
type Watcher struct {
	dir       string
	submitter FileSubmitter
	opts      WatcherOptions
	logger    *slog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu            sync.Mutex
	pending       map[string]bool
	busy          map[string]bool
	debounceTimer *time.Timer
	stopped       bool
}

func NewWatcher(dir string, submitter FileSubmitter, opts WatcherOptions) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:       filepath.Clean(dir),
		submitter: submitter,
		opts:      opts,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]bool),
		busy:      make(map[string]bool),
	}
}

// Start begins watching. Accepted files already in the directory are
// queued as if they had just been created.
func (w *Watcher) Start() error {
	if err := util.EnsureDir(w.dir); err != nil {
		return err
	}
	if err := util.EnsureDir(filepath.Join(w.dir, SubmittedDir)); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		watcher.Close()
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.queue(filepath.Join(w.dir, e.Name()))
		}
	}

	w.logger.Info("Inbox watcher started", "path", w.dir, "debounce", w.opts.Debounce)

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop stops watching and waits for running submissions to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Inbox watcher error", "error", err)

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if filepath.Dir(event.Name) != w.dir {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}
	w.queue(event.Name)
}

// queue marks path as changed and restarts the debounce timer.
func (w *Watcher) queue(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !IsSupported(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending[path] = true
	w.resetTimerLocked()
}

func (w *Watcher) resetTimerLocked() {
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.flush)
}

// flush submits every settled file, in natural name order.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	// Paths still being submitted stay pending; submit re-arms the timer
	// when it finds them there.
	var paths []string
	for path := range w.pending {
		if w.busy[path] {
			continue
		}
		paths = append(paths, path)
		w.busy[path] = true
		delete(w.pending, path)
	}
	if len(paths) == 0 {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	slices.SortFunc(paths, compareNames)

	w.logger.Debug("Inbox files settled", "count", len(paths))
	go func() {
		defer w.wg.Done()
		for _, path := range paths {
			w.submit(path)
		}
	}()
}

func (w *Watcher) submit(path string) {
	defer func() {
		w.mu.Lock()
		delete(w.busy, path)
		if w.pending[path] && !w.stopped {
			w.resetTimerLocked()
		}
		w.mu.Unlock()
	}()

	if w.ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	upload, err := w.submitter.SubmitFile(w.ctx, path, w.opts.InferOnly)
	if err != nil {
		w.logger.Warn("Inbox submission failed, leaving file in place", "file", filepath.Base(path), "error", err)
		w.reject(path, err)
		return
	}
	if w.opts.Rejects != nil {
		if err := w.opts.Rejects.DeleteRejectedByPath(path); err != nil {
			w.logger.Warn("Could not clear rejected file entry", "file", path, "error", err)
		}
	}

	dest := util.UniquePath(filepath.Join(w.dir, SubmittedDir, filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Error("Could not move submitted file", "file", path, "job_id", upload.JobID, "error", err)
		return
	}
	w.logger.Info("Inbox file submitted", "file", filepath.Base(path), "job_id", upload.JobID)
}

func (w *Watcher) reject(path string, cause error) {
	if w.opts.Rejects == nil || w.ctx.Err() != nil {
		return
	}
	reason, lasting := Classify(cause)
	if !lasting {
		return
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	if err := w.opts.Rejects.RecordRejected(path, reason, cause.Error(), size); err != nil {
		w.logger.Error("Could not record rejected file", "file", path, "error", err)
	}
}
