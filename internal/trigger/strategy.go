package trigger

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// input — одно обновление буфера, подготовленное для стратегий.
type input struct {
	folded   string // буфер целиком, в нижнем регистре
	appended string // добавленный текст, в нижнем регистре
	now      time.Time
}

// match — результат успешной стратегии до построения решения.
type match struct {
	strategy Strategy
	pattern  string
	effect   EffectKind
	item     ScheduleItem // только для ротации
}

// strategy — одна стратегия сопоставления. Каждая владеет только своим состоянием;
// кулдаун общий и доступен через gate.
type strategy interface {
	evaluate(in input, gate *cooldownGate) (match, bool)
}

// cooldownGate хранит кулдауны и время последних срабатываний (ключи в нижнем регистре).
type cooldownGate struct {
	cooldowns       map[string]time.Duration
	lastFired       map[string]time.Time
	rotatingDefault time.Duration
	isRotating      func(word string) bool
}

func (g *cooldownGate) canFire(pattern string, now time.Time) bool {
	p := strings.ToLower(pattern)
	cd, ok := g.cooldowns[p]
	if !ok && g.isRotating != nil && g.isRotating(p) {
		cd, ok = g.rotatingDefault, true
	}
	if !ok {
		return true
	}
	last, fired := g.lastFired[p]
	if !fired {
		return true
	}
	return now.Sub(last) >= cd
}

func (g *cooldownGate) mark(pattern string, now time.Time) {
	g.lastFired[strings.ToLower(pattern)] = now
}

// cumulativeStrategy срабатывает, когда набраны все различные буквы шаблона в любом порядке.
type cumulativeStrategy struct {
	table    map[string]EffectKind
	order    []string
	required map[string]map[rune]struct{}
	progress map[string]map[rune]struct{}
}

func newCumulative(table map[string]EffectKind) *cumulativeStrategy {
	c := &cumulativeStrategy{}
	c.replace(table)
	return c
}

// replace ставит новую таблицу и обнуляет прогресс всех её шаблонов.
func (c *cumulativeStrategy) replace(table map[string]EffectKind) {
	c.table = maps.Clone(table)
	c.order = slices.Sorted(maps.Keys(table))
	c.required = make(map[string]map[rune]struct{}, len(table))
	c.progress = make(map[string]map[rune]struct{}, len(table))
	for p := range table {
		set := make(map[rune]struct{}, len(p))
		for _, r := range p {
			set[r] = struct{}{}
		}
		c.required[p] = set
		c.progress[p] = map[rune]struct{}{}
	}
}

// evaluate добавляет в прогресс все добавленные символы. Срабатывает не больше одного шаблона за событие:
// после первого срабатывания остальные символы только копятся, и шаблон, собранный в этом же событии,
// сработает при следующем своём символе.
func (c *cumulativeStrategy) evaluate(in input, gate *cooldownGate) (match, bool) {
	var (
		m     match
		fired bool
	)
	for _, ch := range in.appended {
		for _, p := range c.order {
			if _, need := c.required[p][ch]; !need {
				continue
			}
			got := c.progress[p]
			got[ch] = struct{}{}
			// В прогресс попадают только буквы шаблона, поэтому равенство размеров означает надмножество.
			if fired || len(got) < len(c.required[p]) || !gate.canFire(p, in.now) {
				continue
			}
			gate.mark(p, in.now)
			c.progress[p] = map[rune]struct{}{}
			m, fired = match{strategy: StrategyCumulative, pattern: p, effect: c.table[p]}, true
		}
	}
	return m, fired
}

// rotatingStrategy сравнивает хвост буфера с активным словом расписания.
type rotatingStrategy struct {
	schedule func() Schedule
}

func (r *rotatingStrategy) evaluate(in input, gate *cooldownGate) (match, bool) {
	item, ok := ActiveItem(r.schedule(), in.now)
	if !ok {
		return match{}, false
	}
	word := strings.ToLower(strings.TrimSpace(item.Word))
	if word == "" || !strings.HasSuffix(in.folded, word) || !gate.canFire(word, in.now) {
		return match{}, false
	}
	gate.mark(word, in.now)
	return match{strategy: StrategyRotating, pattern: item.Word, effect: EffectBlockGlitch, item: item}, true
}

// suffixStrategy срабатывает, когда буфер оканчивается шаблоном.
// При нескольких совпадениях выигрывает самый длинный шаблон, затем лексикографически меньший.
type suffixStrategy struct {
	table map[string]EffectKind
	order []string
}

func newSuffix(table map[string]EffectKind) *suffixStrategy {
	s := &suffixStrategy{}
	s.replace(table)
	return s
}

func (s *suffixStrategy) replace(table map[string]EffectKind) {
	s.table = maps.Clone(table)
	s.order = slices.SortedFunc(maps.Keys(table), func(a, b string) int {
		if c := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

func (s *suffixStrategy) evaluate(in input, gate *cooldownGate) (match, bool) {
	for _, p := range s.order {
		if !strings.HasSuffix(in.folded, p) {
			continue
		}
		// Кулдаун проверяется только у первого совпадения.
		if !gate.canFire(p, in.now) {
			return match{}, false
		}
		gate.mark(p, in.now)
		return match{strategy: StrategySuffix, pattern: p, effect: s.table[p]}, true
	}
	return match{}, false
}
