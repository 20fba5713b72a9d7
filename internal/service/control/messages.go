package control

import (
	"Xtion/internal/app/runner"
	"Xtion/internal/service/media"
	"Xtion/internal/trigger"
)

// Типы сообщений протокола.
const (
	TypeConfigChanged = "config-changed"
	TypeBuffer        = "buffer"
	TypeSpecialKey    = "special-key"
	TypeStatus        = "status"

	TypeAck   = "ack"
	TypeError = "error"
	TypeFire  = "fire"
	TypeMedia = "media"
)

// Inbound — сообщение от клиента.
type Inbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	KeyCode uint16 `json:"keyCode,omitempty"`
}

// Reply — ответ сервера на Inbound.
type Reply struct {
	Type     string         `json:"type"`
	Accepted bool           `json:"accepted,omitempty"`
	Error    string         `json:"error,omitempty"`
	Status   *runner.Status `json:"status,omitempty"`
}

// Fire рассылается всем клиентам при каждом срабатывании.
type Fire struct {
	Type string `json:"type"`
	trigger.Decision
}

func NewFire(d trigger.Decision) Fire { return Fire{Type: TypeFire, Decision: d} }

// MediaShown рассылается, когда окну показа нужно открыть GIF или видео.
type MediaShown struct {
	Type string `json:"type"`
	media.Shown
}

func NewMediaShown(s media.Shown) MediaShown { return MediaShown{Type: TypeMedia, Shown: s} }

// event переводит сообщение клиента в событие движка.
func (m Inbound) event() (runner.Event, bool) {
	switch m.Type {
	case TypeConfigChanged:
		return runner.ConfigChanged{}, true
	case TypeBuffer:
		return runner.BufferUpdated{Text: m.Text}, true
	case TypeSpecialKey:
		return runner.SpecialKeyPressed{Code: m.KeyCode}, true
	}
	return nil, false
}
