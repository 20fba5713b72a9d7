package keys

import (
	"time"
	"unicode"
)

// Tracker превращает сырые нажатия в события: отбрасывает автоповтор
// и ведёт буфер символов.
type Tracker struct {
	buf     *Buffer
	pressed map[uint16]bool
}

func NewTracker(bufferSize int) *Tracker {
	return &Tracker{buf: NewBuffer(bufferSize), pressed: map[uint16]bool{}}
}

// KeyDown обрабатывает нажатие. Повторное нажатие без отпускания игнорируется.
// Печатный символ обновляет буфер; каждое новое нажатие публикуется как EventKey.
func (t *Tracker) KeyDown(code uint16, r rune, at time.Time) []Event {
	if t.pressed[code] {
		return nil
	}
	t.pressed[code] = true

	var out []Event
	if r != 0 && unicode.IsPrint(r) {
		out = append(out, Event{Type: EventBuffer, Text: t.buf.Push(r), At: at})
	}
	return append(out, Event{Type: EventKey, Code: code, At: at})
}

func (t *Tracker) KeyUp(code uint16) { delete(t.pressed, code) }

func (t *Tracker) Buffer() string { return t.buf.String() }
