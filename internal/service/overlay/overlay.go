// Package overlay ведёт полноэкранный эффект: не больше одного активного одновременно.
package overlay

import (
	"Xtion/internal/trigger"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Grabber снимает фоновый кадр для эффекта.
type Grabber interface {
	Grab() (string, error)
}

type EventType string

const (
	EventStarted EventType = "overlay-started"
	EventStopped EventType = "overlay-stopped"
)

// Event уходит окну оверлея.
type Event struct {
	Type     EventType          `json:"type"`
	Effect   trigger.EffectKind `json:"effect"`
	Fragment string             `json:"fragment,omitempty"`
	Frame    string             `json:"frame,omitempty"`
	Duration time.Duration      `json:"duration,omitempty"`
}

type Overlay struct {
	grab   Grabber
	logger *zap.SugaredLogger

	mu     sync.Mutex
	active bool
	effect trigger.EffectKind
	gen    int
	timer  *time.Timer
	sinks  []func(Event)
}

// New создаёт оверлей; grab может быть nil, тогда эффект стартует без фонового кадра.
func New(grab Grabber, logger *zap.SugaredLogger) *Overlay {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Overlay{grab: grab, logger: logger}
}

func (o *Overlay) Subscribe(fn func(Event)) {
	o.mu.Lock()
	o.sinks = append(o.sinks, fn)
	o.mu.Unlock()
}

// Start запускает эффект на d. Пока предыдущий эффект активен, новый старт игнорируется.
func (o *Overlay) Start(effect trigger.EffectKind, d time.Duration) error {
	fragment := effect.FragmentFunction()
	if fragment == "" {
		return fmt.Errorf("overlay: unknown effect %d", effect)
	}
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		o.logger.Debugw("Overlay busy, start ignored", "effect", effect, "active", o.effect)
		return nil
	}
	o.active, o.effect = true, effect
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	var frame string
	if o.grab != nil {
		f, err := o.grab.Grab()
		if err != nil {
			o.logger.Debugw("Background frame unavailable", "error", err)
		}
		frame = f
	}

	o.emit(Event{Type: EventStarted, Effect: effect, Fragment: fragment, Frame: frame, Duration: d})
	o.logger.Infow("Overlay started", "effect", effect, "duration", d.String())

	o.mu.Lock()
	if o.gen == gen && o.active {
		o.timer = time.AfterFunc(d, func() { o.finish(gen) })
	}
	o.mu.Unlock()
	return nil
}

// Stop досрочно гасит активный эффект.
func (o *Overlay) Stop() {
	o.mu.Lock()
	gen := o.gen
	o.mu.Unlock()
	o.finish(gen)
}

func (o *Overlay) Active() (trigger.EffectKind, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.effect, o.active
}

func (o *Overlay) finish(gen int) {
	o.mu.Lock()
	if !o.active || o.gen != gen {
		o.mu.Unlock()
		return
	}
	effect := o.effect
	o.active = false
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventStopped, Effect: effect})
	o.logger.Debugw("Overlay stopped", "effect", effect)
}

func (o *Overlay) emit(ev Event) {
	o.mu.Lock()
	sinks := slices.Clone(o.sinks)
	o.mu.Unlock()
	for _, fn := range sinks {
		fn(ev)
	}
}
