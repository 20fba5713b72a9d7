// Package trigger решает по потоку нажатий, какой эффект запустить.
//
// Engine не потокобезопасен: все вызовы должны идти из одной горутины
// (см. internal/app/runner), тогда прогресс, кулдауны и таблицы правил не требуют блокировок.
package trigger

import (
	"io"
	"maps"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultRotatingCooldown — кулдаун ротационного слова, если он не задан явно.
const DefaultRotatingCooldown = 1500 * time.Second

type Engine struct {
	defaults      RuleSet
	timing        Timing
	now           func() time.Time
	entropy       io.Reader
	patternSounds map[string]string

	cumulative *cumulativeStrategy
	suffix     *suffixStrategy
	strategies []strategy
	media      map[string]MediaSelector
	gate       *cooldownGate
	schedule   Schedule

	special  map[uint16]SpecialKey
	counters map[uint16]*specialCounter

	previous string
}

// Option настраивает Engine при создании.
type Option func(*Engine)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithTiming(t Timing) Option { return func(e *Engine) { e.timing = t } }

// WithDefaults задаёт правила по умолчанию, поверх которых сливаются медиа и кулдауны при перезагрузке.
func WithDefaults(rs RuleSet) Option { return func(e *Engine) { e.defaults = rs.normalize() } }

func WithDefaultRotatingCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.gate.rotatingDefault = d
		}
	}
}

func WithSpecialKeys(keys []SpecialKey) Option {
	return func(e *Engine) {
		e.special = make(map[uint16]SpecialKey, len(keys))
		for _, k := range keys {
			e.special[k.Code] = k
		}
	}
}

// WithPatternSounds задаёт звук, который играет вместе с GIF при срабатывании шаблона.
func WithPatternSounds(sounds map[string]string) Option {
	return func(e *Engine) { e.patternSounds = foldKeys(sounds) }
}

func WithSchedule(s Schedule) Option { return func(e *Engine) { e.schedule = s.Sorted() } }

// New создаёт движок с правилами по умолчанию.
func New(opts ...Option) *Engine {
	e := &Engine{
		defaults:      DefaultRuleSet().normalize(),
		timing:        DefaultTiming(),
		now:           time.Now,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		patternSounds: map[string]string{"ghost": DefaultRotatingSound},
		gate: &cooldownGate{
			lastFired:       map[string]time.Time{},
			rotatingDefault: DefaultRotatingCooldown,
		},
		counters: map[uint16]*specialCounter{},
	}
	WithSpecialKeys(DefaultSpecialKeys())(e)
	for _, opt := range opts {
		opt(e)
	}

	e.gate.isRotating = func(word string) bool { return e.schedule.Contains(word) }
	e.cumulative = newCumulative(e.defaults.Cumulative)
	e.suffix = newSuffix(withoutKeys(e.defaults.Suffix, e.cumulative.table))
	e.media = maps.Clone(e.defaults.Media)
	e.gate.cooldowns = maps.Clone(e.defaults.Cooldowns)
	// Порядок задаёт приоритет: накопление, затем ротация, затем суффикс.
	e.strategies = []strategy{
		e.cumulative,
		&rotatingStrategy{schedule: func() Schedule { return e.schedule }},
		e.suffix,
	}
	return e
}

// OnBufferUpdated обрабатывает новое состояние буфера последних символов.
// Возвращает не более одного решения.
func (e *Engine) OnBufferUpdated(buffer string) (Decision, bool) {
	now := e.now()
	// Буфер обычно продолжает предыдущий; при расхождении весь буфер считается новым вводом.
	appended := buffer
	if strings.HasPrefix(buffer, e.previous) {
		appended = buffer[len(e.previous):]
	}
	e.previous = buffer

	in := input{folded: strings.ToLower(buffer), appended: strings.ToLower(appended), now: now}
	for _, s := range e.strategies {
		if m, ok := s.evaluate(in, e.gate); ok {
			return e.decide(m, now), true
		}
	}
	return Decision{}, false
}

// OnSpecialKey считает нажатия клавиши и срабатывает на каждом достижении порога.
// Кулдаун к специальным клавишам не применяется. Клавиши без настроенной реакции считаются, но не срабатывают.
func (e *Engine) OnSpecialKey(code uint16) (Decision, bool) {
	c := e.counter(code)
	if !c.press() {
		return Decision{}, false
	}
	sk, ok := e.special[code]
	if !ok {
		return Decision{}, false
	}
	now := e.now()
	d := Decision{
		ID:       e.newID(now),
		Kind:     DecisionSpecialKey,
		Strategy: StrategySpecial,
		KeyCode:  code,
		Sound:    sk.Sound,
		Media:    sk.Media,
		HasMedia: !sk.Media.IsZero(),
		At:       now,
	}
	d.Actions = e.timing.specialPlan(d)
	return d, true
}

// SetSpecialThreshold меняет порог срабатывания клавиши (n < 1 трактуется как 1).
func (e *Engine) SetSpecialThreshold(code uint16, n int) {
	n = max(1, n)
	if sk, ok := e.special[code]; ok {
		sk.Threshold = n
		e.special[code] = sk
	}
	e.counter(code).threshold = n
}

func (e *Engine) counter(code uint16) *specialCounter {
	c, ok := e.counters[code]
	if !ok {
		threshold := 1
		if sk, found := e.special[code]; found {
			threshold = max(1, sk.Threshold)
		}
		c = &specialCounter{threshold: threshold}
		e.counters[code] = c
	}
	return c
}

// CanFire сообщает, прошёл ли кулдаун шаблона.
func (e *Engine) CanFire(pattern string) bool {
	return e.gate.canFire(pattern, e.now())
}

// Reload заменяет таблицы правил. Пустая категория оставляет текущую таблицу;
// суффиксная и накопительная таблицы заменяются целиком, медиа и кулдауны сливаются поверх умолчаний.
// Время последних срабатываний сохраняется.
func (e *Engine) Reload(rs RuleSet) {
	n := rs.normalize()
	if len(n.Cumulative) > 0 {
		e.cumulative.replace(n.Cumulative)
	}
	if suffix := withoutKeys(n.Suffix, e.cumulative.table); len(suffix) > 0 {
		e.suffix.replace(suffix)
	} else {
		e.suffix.replace(withoutKeys(e.suffix.table, e.cumulative.table))
	}
	if len(n.Media) > 0 {
		e.media = mergeOver(e.defaults.Media, n.Media)
	}
	if len(n.Cooldowns) > 0 {
		e.gate.cooldowns = mergeOver(e.defaults.Cooldowns, n.Cooldowns)
	}
}

// ReloadSchedule заменяет расписание ротации; пустое расписание игнорируется.
func (e *Engine) ReloadSchedule(s Schedule) {
	if len(s) == 0 {
		return
	}
	e.schedule = s.Sorted()
}

// Schedule возвращает копию текущего расписания.
func (e *Engine) Schedule() Schedule { return e.schedule.Sorted() }

// ActiveWord возвращает действующий сейчас элемент расписания.
func (e *Engine) ActiveWord() (ScheduleItem, bool) { return ActiveItem(e.schedule, e.now()) }

// NextSwitch возвращает время ближайшей смены ротационного слова.
func (e *Engine) NextSwitch() (time.Time, bool) { return NextSwitch(e.schedule, e.now()) }

// Stats — размеры текущих таблиц.
type Stats struct {
	Suffix     int `json:"suffix"`
	Cumulative int `json:"cumulative"`
	Media      int `json:"media"`
	Cooldowns  int `json:"cooldowns"`
	Schedule   int `json:"schedule"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Suffix:     len(e.suffix.table),
		Cumulative: len(e.cumulative.table),
		Media:      len(e.media),
		Cooldowns:  len(e.gate.cooldowns),
		Schedule:   len(e.schedule),
	}
}

func (e *Engine) decide(m match, now time.Time) Decision {
	d := Decision{
		ID:        e.newID(now),
		Kind:      DecisionWord,
		Strategy:  m.strategy,
		Origin:    m.pattern,
		Effect:    m.effect,
		HasEffect: true,
		At:        now,
	}
	if m.strategy == StrategyRotating {
		d.Media, d.HasMedia = m.item.Media, !m.item.Media.IsZero()
		d.Sound = m.item.Sound
		d.Actions = e.timing.rotatingPlan(d)
		return d
	}
	p := strings.ToLower(m.pattern)
	if sel, ok := e.media[p]; ok {
		d.Media, d.HasMedia = sel, true
	} else if m.effect == EffectBlockGlitch {
		d.Media, d.HasMedia = Named(fallbackBlockGlitchMedia), true
	}
	d.Sound = e.patternSounds[p]
	d.Actions = e.timing.wordPlan(d)
	return d
}

// newID не паникует на часах вне диапазона ULID: время прижимается к границам.
func (e *Engine) newID(now time.Time) string {
	var ms uint64
	switch {
	case now.Before(time.UnixMilli(0)):
	case now.After(ulid.Time(ulid.MaxTime())):
		ms = ulid.MaxTime()
	default:
		ms = ulid.Timestamp(now)
	}
	id, err := ulid.New(ms, e.entropy)
	if err != nil {
		return ""
	}
	return id.String()
}
