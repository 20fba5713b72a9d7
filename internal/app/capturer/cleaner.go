package capturer

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Cleaner убирает кадры старше TTL. Самый свежий кадр не трогается: оверлей может его ещё показывать.
type Cleaner struct {
	dir    string
	ttl    time.Duration
	debug  bool
	logger *zap.SugaredLogger
}

func NewCleaner(dir string, ttl time.Duration, debug bool, logger *zap.SugaredLogger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cleaner{dir: dir, ttl: ttl, debug: debug, logger: logger}
}

// Sweep возвращает число удалённых кадров. В режиме debug кадры сохраняются для разбора.
func (c *Cleaner) Sweep(now time.Time) int {
	if c.debug {
		c.logger.Debugw("DEBUG: очистка кадров отключена", "dir", c.dir)
		return 0
	}
	if c.ttl <= 0 || c.dir == "" {
		return 0
	}
	frames, err := filepath.Glob(filepath.Join(c.dir, "*.jpg"))
	if err != nil || len(frames) < 2 {
		return 0
	}
	// имена кадров — метки времени, поэтому сортировка по имени хронологическая
	sort.Strings(frames)
	frames = frames[:len(frames)-1]

	deadline := now.Add(-c.ttl)
	removed := 0
	for _, path := range frames {
		fi, err := os.Stat(path)
		if err != nil || !fi.ModTime().Before(deadline) {
			continue
		}
		if err := os.Remove(path); err != nil {
			c.logger.Warnw("Не удалось удалить старый кадр", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		c.logger.Debugw("Старые кадры удалены", "dir", c.dir, "removed", removed)
	}
	return removed
}
