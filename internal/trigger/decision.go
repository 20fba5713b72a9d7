package trigger

import "time"

// DecisionKind различает срабатывание по слову и по специальной клавише.
type DecisionKind string

const (
	DecisionWord       DecisionKind = "word"
	DecisionSpecialKey DecisionKind = "special-key"
)

// Strategy — стратегия сопоставления, давшая срабатывание.
type Strategy string

const (
	StrategyCumulative Strategy = "cumulative"
	StrategyRotating   Strategy = "rotating"
	StrategySuffix     Strategy = "suffix"
	StrategySpecial    Strategy = "special"
)

// ActionKind — шаг представления, выполняемый диспетчером.
type ActionKind string

const (
	ActionOverlay   ActionKind = "overlay"
	ActionMedia     ActionKind = "media"
	ActionStopSound ActionKind = "stop-sound"
	ActionUnmute    ActionKind = "unmute"
	ActionSetVolume ActionKind = "set-volume"
	ActionSound     ActionKind = "sound"
)

// Action — отложенный шаг представления. Шаги с одинаковой задержкой выполняются в порядке следования.
type Action struct {
	Delay    time.Duration `json:"delay"`
	Kind     ActionKind    `json:"kind"`
	Effect   EffectKind    `json:"effect,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Media    MediaSelector `json:"media,omitzero"`
	Size     Size          `json:"size,omitzero"`
	Sound    string        `json:"sound,omitempty"`
	Volume   float64       `json:"volume,omitempty"`
}

// Decision — решение движка о срабатывании вместе с планом представления.
// Движок только строит план; таймерами владеет диспетчер.
type Decision struct {
	ID        string        `json:"id"`
	Kind      DecisionKind  `json:"kind"`
	Strategy  Strategy      `json:"strategy"`
	Origin    string        `json:"origin,omitempty"`
	KeyCode   uint16        `json:"keyCode,omitempty"`
	Effect    EffectKind    `json:"effect,omitempty"`
	HasEffect bool          `json:"hasEffect"`
	Media     MediaSelector `json:"media,omitzero"`
	HasMedia  bool          `json:"hasMedia"`
	Sound     string        `json:"sound,omitempty"`
	At        time.Time     `json:"at"`
	Actions   []Action      `json:"actions"`
}

// Timing — параметры плана представления.
type Timing struct {
	EffectDuration time.Duration // длительность эффекта оверлея
	MediaDelay     time.Duration // задержка GIF после старта эффекта для слов из таблиц
	OutputVolume   float64       // громкость вывода для ротационного слова
	MediaSize      Size
	RotatingSize   Size
}

// DefaultTiming — тайминги по умолчанию.
func DefaultTiming() Timing {
	return Timing{
		EffectDuration: 3 * time.Second,
		MediaDelay:     2 * time.Second,
		OutputVolume:   0.8,
		MediaSize:      Size{W: 800, H: 800},
		RotatingSize:   Size{W: 1000, H: 800},
	}
}

// fallbackBlockGlitchMedia показывается для blockGlitch, если у шаблона нет правила медиа.
const fallbackBlockGlitchMedia = "halloween"

// soundSteps — остановить текущий звук, снять mute и проиграть новый.
func soundSteps(delay time.Duration, sound string) []Action {
	return []Action{
		{Delay: delay, Kind: ActionStopSound},
		{Delay: delay, Kind: ActionUnmute},
		{Delay: delay, Kind: ActionSound, Sound: sound},
	}
}

func (t Timing) wordPlan(d Decision) []Action {
	actions := []Action{{Kind: ActionOverlay, Effect: d.Effect, Duration: t.EffectDuration}}
	if d.HasMedia {
		actions = append(actions, Action{Delay: t.MediaDelay, Kind: ActionMedia, Media: d.Media, Size: t.MediaSize})
	}
	if d.Sound != "" {
		actions = append(actions, soundSteps(t.MediaDelay, d.Sound)...)
	}
	return actions
}

func (t Timing) rotatingPlan(d Decision) []Action {
	actions := []Action{{Kind: ActionOverlay, Effect: d.Effect, Duration: t.EffectDuration}}
	if d.HasMedia {
		actions = append(actions, Action{Kind: ActionMedia, Media: d.Media, Size: t.RotatingSize})
	}
	actions = append(actions,
		Action{Kind: ActionStopSound},
		Action{Kind: ActionUnmute},
		Action{Kind: ActionSetVolume, Volume: t.OutputVolume},
	)
	if d.Sound != "" {
		actions = append(actions, Action{Kind: ActionSound, Sound: d.Sound})
	}
	return actions
}

func (t Timing) specialPlan(d Decision) []Action {
	var actions []Action
	if d.Sound != "" {
		actions = append(actions, soundSteps(0, d.Sound)...)
	}
	if d.HasMedia {
		actions = append(actions, Action{Kind: ActionMedia, Media: d.Media, Size: t.MediaSize})
	}
	return actions
}
