// Package dispatch исполняет план решения движка по таймерам.
package dispatch

import (
	"Xtion/internal/trigger"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Overlay показывает эффект поверх экрана.
type Overlay interface {
	Start(effect trigger.EffectKind, d time.Duration) error
}

// Media показывает GIF или видео.
type Media interface {
	Show(sel trigger.MediaSelector, size trigger.Size) error
}

// Sound управляет звуком.
type Sound interface {
	Play(name string) error
	Stop()
	Unmute()
	SetVolume(v float64)
}

// Dispatcher планирует шаги каждого решения. Шаги прежних решений не отменяются,
// поэтому эффекты быстро идущих срабатываний накладываются.
type Dispatcher struct {
	overlay Overlay
	media   Media
	sound   Sound
	logger  *zap.SugaredLogger

	wg sync.WaitGroup
}

// New создаёт диспетчер; nil-исполнитель пропускает соответствующие шаги.
func New(overlay Overlay, media Media, sound Sound, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{overlay: overlay, media: media, sound: sound, logger: logger}
}

// Dispatch группирует шаги по задержке и запускает каждую группу своим таймером.
// Внутри группы шаги идут в порядке плана. Отменённый ctx пропускает ещё не наступившие группы.
func (d *Dispatcher) Dispatch(ctx context.Context, dec trigger.Decision) {
	for _, g := range groups(dec.Actions) {
		d.wg.Add(1)
		time.AfterFunc(g.delay, func() {
			defer d.wg.Done()
			if ctx.Err() != nil {
				return
			}
			for _, a := range g.actions {
				d.apply(dec.ID, a)
			}
		})
	}
}

// Wait ждёт завершения всех запланированных шагов.
func (d *Dispatcher) Wait() { d.wg.Wait() }

type group struct {
	delay   time.Duration
	actions []trigger.Action
}

func groups(actions []trigger.Action) []group {
	var out []group
	idx := map[time.Duration]int{}
	for _, a := range actions {
		i, ok := idx[a.Delay]
		if !ok {
			i = len(out)
			idx[a.Delay] = i
			out = append(out, group{delay: a.Delay})
		}
		out[i].actions = append(out[i].actions, a)
	}
	return out
}

func (d *Dispatcher) apply(id string, a trigger.Action) {
	var err error
	switch a.Kind {
	case trigger.ActionOverlay:
		if d.overlay != nil {
			err = d.overlay.Start(a.Effect, a.Duration)
		}
	case trigger.ActionMedia:
		if d.media != nil {
			err = d.media.Show(a.Media, a.Size)
		}
	case trigger.ActionStopSound:
		if d.sound != nil {
			d.sound.Stop()
		}
	case trigger.ActionUnmute:
		if d.sound != nil {
			d.sound.Unmute()
		}
	case trigger.ActionSetVolume:
		if d.sound != nil {
			d.sound.SetVolume(a.Volume)
		}
	case trigger.ActionSound:
		if d.sound != nil {
			err = d.sound.Play(a.Sound)
		}
	default:
		d.logger.Warnw("Unknown action", "id", id, "kind", a.Kind)
		return
	}
	if err != nil {
		d.logger.Warnw("Action failed", "id", id, "kind", a.Kind, "error", err)
	}
}
