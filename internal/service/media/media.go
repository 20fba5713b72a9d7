// Package media находит файлы GIF и видео для срабатываний и сообщает окну показа.
package media

import (
	"Xtion/internal/trigger"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrMediaNotFound = errors.New("media not found")

// Расширения, которые ищутся для именованного медиа, в порядке предпочтения.
var namedExts = []string{".gif", ".mp4", ".mov"}

type Config struct {
	Dir          string
	DefaultGroup string // папка для random без явной папки
	Fallback     string // имя, если в папке нет ни одного GIF
}

type Resolver struct {
	cfg Config

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Resolve возвращает путь к файлу для селектора.
func (r *Resolver) Resolve(sel trigger.MediaSelector) (string, error) {
	switch sel.Kind {
	case trigger.MediaNamed:
		return r.named(sel.Name)
	case trigger.MediaRandom:
		folder := sel.Folder
		if folder == "" {
			folder = r.cfg.DefaultGroup
		}
		if p, ok := r.pick(filepath.Join(r.cfg.Dir, folder)); ok {
			return p, nil
		}
		return r.named(r.cfg.Fallback)
	}
	return "", fmt.Errorf("%w: empty selector", ErrMediaNotFound)
}

func (r *Resolver) named(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrMediaNotFound)
	}
	base := filepath.Join(r.cfg.Dir, name)
	if ext := strings.ToLower(filepath.Ext(name)); slices.Contains(namedExts, ext) {
		if isFile(base) {
			return base, nil
		}
		return "", fmt.Errorf("%w: %s", ErrMediaNotFound, name)
	}
	for _, ext := range namedExts {
		if p := base + ext; isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMediaNotFound, name)
}

// pick выбирает случайный GIF в папке.
func (r *Resolver) pick(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var gifs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gif") {
			continue
		}
		gifs = append(gifs, filepath.Join(dir, e.Name()))
	}
	if len(gifs) == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return gifs[r.rnd.Intn(len(gifs))], true
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// Shown — что и каким размером нужно показать.
type Shown struct {
	Path  string       `json:"path"`
	Video bool         `json:"video"`
	Size  trigger.Size `json:"size"`
}

// Presenter разрешает медиа и передаёт его окну показа через подписчиков.
type Presenter struct {
	res    *Resolver
	logger *zap.SugaredLogger

	mu    sync.Mutex
	sinks []func(Shown)
}

func NewPresenter(res *Resolver, logger *zap.SugaredLogger) *Presenter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Presenter{res: res, logger: logger}
}

func (p *Presenter) Subscribe(fn func(Shown)) {
	p.mu.Lock()
	p.sinks = append(p.sinks, fn)
	p.mu.Unlock()
}

func (p *Presenter) Show(sel trigger.MediaSelector, size trigger.Size) error {
	path, err := p.res.Resolve(sel)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	s := Shown{Path: path, Video: ext == ".mp4" || ext == ".mov", Size: size}
	p.logger.Infow("Media shown", "selector", sel.String(), "path", path, "w", size.W, "h", size.H)

	p.mu.Lock()
	sinks := slices.Clone(p.sinks)
	p.mu.Unlock()
	for _, fn := range sinks {
		fn(s)
	}
	return nil
}
