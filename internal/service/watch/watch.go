// Package watch следит за файлом хранилища и сообщает об изменениях правил.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher вызывает onChange после серии записей в базу или её WAL-файл,
// когда записи затихли на время debounce.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	onChange func()
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer
}

// New начинает следить за директорией dbPath.
func New(dbPath string, debounce time.Duration, onChange func(), logger *zap.SugaredLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// fsnotify не видит файлы, которых ещё нет, поэтому следим за директорией
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		files:    map[string]bool{abs: true, abs + "-wal": true},
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Start блокирует до отмены контекста.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.files[name] {
				continue
			}
			w.logger.Debugw("Store file changed", "file", filepath.Base(name), "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorw("Watcher error", "error", err)
		case <-ctx.Done():
			w.stopTimer()
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.logger.Infow("Store changed, reloading rules")
		if w.onChange != nil {
			w.onChange()
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close освобождает ресурсы, если Start не запускался.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
