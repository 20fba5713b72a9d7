// Package runner владеет движком триггеров и сериализует все обращения к нему.
package runner

import (
	"Xtion/internal/app/rules"
	"Xtion/internal/trigger"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event — входящее событие для движка.
type Event interface{ event() }

// BufferUpdated — новое состояние буфера последних символов.
type BufferUpdated struct{ Text string }

// SpecialKeyPressed — нажатие клавиши с кодом Code.
type SpecialKeyPressed struct{ Code uint16 }

// ConfigChanged — правила в хранилище изменились, нужна перезагрузка.
type ConfigChanged struct{}

func (BufferUpdated) event()     {}
func (SpecialKeyPressed) event() {}
func (ConfigChanged) event()     {}

// Dispatcher исполняет план решения.
type Dispatcher interface {
	Dispatch(ctx context.Context, d trigger.Decision)
}

// Observer получает копию каждого решения (например, для рассылки клиентам).
type Observer func(trigger.Decision)

// Status — снимок состояния движка, безопасный для чтения из других горутин.
type Status struct {
	Stats      trigger.Stats `json:"stats"`
	ActiveWord string        `json:"activeWord,omitempty"`
	NextSwitch time.Time     `json:"nextSwitch,omitzero"`
	Fired      int64         `json:"fired"`
	Dropped    int64         `json:"dropped"`
	Issues     int           `json:"issues"`
	LoadedAt   time.Time     `json:"loadedAt,omitzero"`
}

type Config struct {
	QueueSize int
	Location  *time.Location
	// InstallTestSchedule ставит тестовое расписание при старте, если активного слова нет.
	InstallTestSchedule bool
}

type Runner struct {
	cfg    Config
	engine *trigger.Engine
	src    rules.Source
	disp   Dispatcher
	logger *zap.SugaredLogger

	in      chan Event
	reloads chan struct{} // сигналы перезагрузки склеиваются и не теряются при полной очереди

	mu        sync.Mutex
	observers []Observer

	status  atomic.Pointer[Status]
	fired   atomic.Int64
	dropped atomic.Int64
	issues  int
	loaded  time.Time
}

func New(cfg Config, engine *trigger.Engine, src rules.Source, disp Dispatcher, logger *zap.SugaredLogger) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Runner{
		cfg:     cfg,
		engine:  engine,
		src:     src,
		disp:    disp,
		logger:  logger,
		in:      make(chan Event, cfg.QueueSize),
		reloads: make(chan struct{}, 1),
	}
	r.status.Store(&Status{})
	return r
}

// Observe добавляет наблюдателя решений. Наблюдатели вызываются из горутины движка и не должны блокировать.
func (r *Runner) Observe(o Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
}

// Submit ставит событие в очередь без блокировки. false — очередь переполнена, событие отброшено.
// ConfigChanged идёт отдельным каналом и принимается всегда: повторные сигналы до обработки склеиваются.
func (r *Runner) Submit(ev Event) bool {
	if _, ok := ev.(ConfigChanged); ok {
		select {
		case r.reloads <- struct{}{}:
		default:
		}
		return true
	}
	select {
	case r.in <- ev:
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warnw("Event dropped: queue is full", "event", ev)
		return false
	}
}

// Status возвращает последний опубликованный снимок.
func (r *Runner) Status() Status { return *r.status.Load() }

// Run загружает правила и обрабатывает события до отмены контекста.
func (r *Runner) Run(ctx context.Context) error {
	r.reload(ctx, true)
	r.logger.Infow("Runner started", "stats", r.engine.Stats())

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-r.reloads:
			r.reload(ctx, false)
		case ev := <-r.in:
			r.handle(ctx, ev)
		}
	}
}

func (r *Runner) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case BufferUpdated:
		if d, ok := r.engine.OnBufferUpdated(ev.Text); ok {
			r.fire(ctx, d)
		}
	case SpecialKeyPressed:
		if d, ok := r.engine.OnSpecialKey(ev.Code); ok {
			r.fire(ctx, d)
		}
	}
	r.publish()
}

func (r *Runner) fire(ctx context.Context, d trigger.Decision) {
	r.fired.Add(1)
	r.logger.Infow("Trigger fired",
		"id", d.ID, "strategy", d.Strategy, "origin", d.Origin, "keyCode", d.KeyCode,
		"effect", d.Effect, "media", d.Media, "sound", d.Sound)
	if r.disp != nil {
		r.disp.Dispatch(ctx, d)
	}
	r.mu.Lock()
	obs := append([]Observer(nil), r.observers...)
	r.mu.Unlock()
	for _, o := range obs {
		o(d)
	}
}

// reload перечитывает правила. Ошибка чтения источника оставляет текущие таблицы.
func (r *Runner) reload(ctx context.Context, startup bool) {
	res, err := rules.Load(ctx, r.src, r.cfg.Location)
	if err != nil {
		r.logger.Errorw("Rules reload failed, keeping current tables", "error", err)
	} else {
		for _, is := range res.Issues {
			r.logger.Warnw("Rule entry skipped", "key", is.Key, "entry", is.Entry, "error", is.Err)
		}
		r.engine.Reload(res.Rules)
		r.engine.ReloadSchedule(res.Schedule)
		r.issues = len(res.Issues)
		r.loaded = time.Now()
	}

	if startup && r.cfg.InstallTestSchedule {
		if _, ok := r.engine.ActiveWord(); !ok {
			r.engine.ReloadSchedule(trigger.DefaultTestSchedule(r.cfg.Location))
			r.logger.Infow("No active rotating word, test schedule installed")
		}
	}

	if item, ok := r.engine.ActiveWord(); ok {
		r.logger.Infow("Rules loaded", "stats", r.engine.Stats(), "activeWord", item.Word, "issues", r.issues)
	} else {
		r.logger.Infow("Rules loaded", "stats", r.engine.Stats(), "issues", r.issues)
	}
	r.publish()
}

func (r *Runner) publish() {
	st := &Status{
		Stats:    r.engine.Stats(),
		Fired:    r.fired.Load(),
		Dropped:  r.dropped.Load(),
		Issues:   r.issues,
		LoadedAt: r.loaded,
	}
	if item, ok := r.engine.ActiveWord(); ok {
		st.ActiveWord = item.Word
	}
	if t, ok := r.engine.NextSwitch(); ok {
		st.NextSwitch = t
	}
	r.status.Store(st)
}
