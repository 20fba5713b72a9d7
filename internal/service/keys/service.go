// Package keys — источник нажатий клавиатуры.
package keys

import (
	"context"
	"time"
)

// EventType описывает типы событий, публикуемых сервисом.
type EventType int

const (
	EventBuffer EventType = iota + 1
	EventKey
)

// Event — событие сервиса: новое содержимое буфера или нажатие клавиши.
type Event struct {
	Type EventType
	Text string
	Code uint16
	At   time.Time
}

// Service минимальный интерфейс источника нажатий.
type Service interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}

type Config struct {
	BufferSize int
}

// stroke — сырое нажатие от платформенного слушателя.
type stroke struct {
	Code uint16
	Rune rune
	Down bool
	At   time.Time
}

// listener реализуется платформенным хуком (hook_windows.go).
type listener interface {
	run(ctx context.Context, out chan<- stroke)
}

// New создаёт сервис с глобальным хуком клавиатуры.
func New(cfg Config) Service {
	return newCoordinator(cfg, newHookListener)
}

func newCoordinator(cfg Config, listen func() (listener, error)) *coordinator {
	return &coordinator{
		listen:  listen,
		tracker: NewTracker(cfg.BufferSize),
		in:      make(chan stroke, 256),
		out:     make(chan Event, 256),
	}
}

type coordinator struct {
	listen  func() (listener, error)
	tracker *Tracker

	in  chan stroke
	out chan Event
}

func (c *coordinator) Events() <-chan Event { return c.out }

func (c *coordinator) Run(ctx context.Context) error {
	l, err := c.listen()
	if err != nil {
		return err
	}
	go l.run(ctx, c.in)

	defer close(c.out)
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case s := <-c.in:
			if !s.Down {
				c.tracker.KeyUp(s.Code)
				continue
			}
			for _, ev := range c.tracker.KeyDown(s.Code, s.Rune, s.At) {
				c.safeSend(ev)
			}
		}
	}
}

func (c *coordinator) safeSend(ev Event) {
	select {
	case c.out <- ev:
	default:
		// в случае переполнения — дроп, чтобы не блокировать
	}
}
